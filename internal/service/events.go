package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/mykafka"
)

const publishTimeout = 5 * time.Second

// ProductIndexer keeps an external search index in step with the catalog.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, p models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
	Search(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

// publish emits an event after the change it describes has been committed.
// Delivery failures are logged and never fail the request.
func publish(ctx context.Context, p mykafka.Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.PublishEvent(pctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "type", event["type"], "error", err)
	}
}
