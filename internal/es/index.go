package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/storefront/internal/models"
)

// ProductIndex keeps a searchable copy of the catalog. The database stays the
// source of truth; Search only returns ids in relevance order.
type ProductIndex struct {
	Client *elasticsearch.Client
	Index  string
}

type productDoc struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
}

func (x *ProductIndex) IndexProduct(ctx context.Context, p models.Product) error {
	doc := productDoc{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price.StringFixed(2),
		Stock: p.Stock,
	}
	if p.Description != nil {
		doc.Description = *p.Description
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("es: encode product: %w", err)
	}

	res, err := x.Client.Index(
		x.Index,
		&buf,
		x.Client.Index.WithContext(ctx),
		x.Client.Index.WithDocumentID(strconv.FormatUint(uint64(p.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("es: index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: index product %d: %s: %s", p.ID, res.Status(), body)
	}
	return nil
}

func (x *ProductIndex) DeleteProduct(ctx context.Context, id uint) error {
	res, err := x.Client.Delete(
		x.Index,
		strconv.FormatUint(uint64(id), 10),
		x.Client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("es: delete product %d: %w", id, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("es: delete product %d: %s: %s", id, res.Status(), body)
	}
	return nil
}

// Search runs a fuzzy multi_match over name and description.
func (x *ProductIndex) Search(ctx context.Context, query string, from, size int) (int64, []uint, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"_source": false,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("es: encode query: %w", err)
	}

	res, err := x.Client.Search(
		x.Client.Search.WithContext(ctx),
		x.Client.Search.WithIndex(x.Index),
		x.Client.Search.WithBody(&buf),
		x.Client.Search.WithFrom(from),
		x.Client.Search.WithSize(size),
		x.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("es: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		b, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("es: search: %s: %s", res.Status(), b)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("es: decode search: %w", err)
	}

	ids := make([]uint, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	return r.Hits.Total.Value, ids, nil
}
