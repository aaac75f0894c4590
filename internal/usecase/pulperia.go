package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polkiloo/pulperia/internal/broadcast"
	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/domain/repository"
)

// PulperiaUseCase opens and closes a vendor's storefront.
type PulperiaUseCase struct {
	pulperias repository.PulperiaRepository
	emitter   broadcast.Emitter
	logger    *slog.Logger
}

// NewPulperiaUseCase constructs PulperiaUseCase.
func NewPulperiaUseCase(pulperias repository.PulperiaRepository, emitter broadcast.Emitter, logger *slog.Logger) *PulperiaUseCase {
	return &PulperiaUseCase{pulperias: pulperias, emitter: emitter, logger: logger}
}

// SetOpen stores the vendor's availability and announces it to the vendor room.
func (u *PulperiaUseCase) SetOpen(ctx context.Context, actor model.Actor, open bool) (*model.Pulperia, error) {
	if actor.Role != model.RoleVendor {
		return nil, fmt.Errorf("%w: only vendors manage a pulperia", domainErrors.ErrForbidden)
	}

	p, err := u.pulperias.SetOpen(ctx, actor.ID, open)
	if err != nil {
		return nil, err
	}

	payload := model.PulperiaStatusPayload{VendorID: p.VendorID, Open: p.Open, UpdatedAt: p.UpdatedAt}
	if err := u.emitter.Emit(ctx, p.VendorID, payload); err != nil {
		u.logger.Error("emit event failed",
			slog.String("event", string(payload.EventName())),
			slog.String("error", err.Error()),
		)
	}
	return p, nil
}

// Status returns the vendor's stored availability.
func (u *PulperiaUseCase) Status(ctx context.Context, vendorID string) (*model.Pulperia, error) {
	return u.pulperias.Get(ctx, vendorID)
}
