package repository

import (
	"context"

	"github.com/polkiloo/pulperia/internal/domain/model"
)

// PulperiaRepository stores vendor storefront availability.
type PulperiaRepository interface {
	SetOpen(ctx context.Context, vendorID string, open bool) (*model.Pulperia, error)
	Get(ctx context.Context, vendorID string) (*model.Pulperia, error)
}
