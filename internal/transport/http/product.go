package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type ProductHTTP struct {
	Svc *service.CatalogService
}

func (h *ProductHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.list")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Svc.ListProducts(ctx, offset, limit)
	if err != nil {
		return httpError(l, "get_products_error", err)
	}
	return c.JSON(http.StatusOK, transport.ProductListResponse{Items: items, Meta: util.NewMeta(page, offset, limit, total)})
}

func (h *ProductHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.search")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	offset, limit := util.Calculate(page, util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize))

	total, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return httpError(l, "search_error", err)
	}
	return c.JSON(http.StatusOK, transport.ProductListResponse{Items: items, Meta: util.NewMeta(page, offset, limit, total)})
}

func (h *ProductHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.get")

	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return httpError(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.create")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.CreateProduct(ctx, userID, req)
	if err != nil {
		return httpError(l, "create_product_error", err)
	}

	l.Info("product created", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.patch")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_product_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	p, err := h.Svc.PatchProduct(ctx, userID, id, req)
	if err != nil {
		return httpError(l, "patch_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "products.delete")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.Svc.DeleteProduct(ctx, userID, id); err != nil {
		return httpError(l, "delete_product_error", err)
	}

	l.Info("product deleted", "product_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "product deleted"})
}
