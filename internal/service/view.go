package service

import (
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func lineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// buildCartView joins cart lines with the live catalog. Lines whose product
// is gone are left out.
func buildCartView(items []models.CartItem, products map[uint]models.Product) transport.CartView {
	view := transport.CartView{Items: make([]transport.CartLine, 0, len(items))}
	total := decimal.Zero
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			continue
		}
		sub := lineSubtotal(p.Price, it.Quantity)
		total = total.Add(sub)
		view.ItemCount += it.Quantity
		view.Items = append(view.Items, transport.CartLine{
			ID:           it.ID,
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     it.Quantity,
			Subtotal:     sub,
		})
	}
	view.TotalPrice = total.Round(2)
	return view
}

func buildOrderView(o models.Order) transport.OrderView {
	lines := make([]transport.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, transport.OrderLine{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: it.ProductPrice,
			Quantity:     it.Quantity,
			Subtotal:     lineSubtotal(it.ProductPrice, it.Quantity),
		})
	}
	return transport.OrderView{
		ID:         o.ID,
		TotalPrice: o.TotalPrice,
		Status:     o.Status,
		Items:      lines,
		CreatedAt:  o.CreatedAt,
	}
}

func cartProductIDs(items []models.CartItem) []uint {
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
