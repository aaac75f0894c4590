package test

import (
	"context"
	"sync"

	domainErrors "github.com/polkiloo/pulperia/internal/domain/errors"
	"github.com/polkiloo/pulperia/internal/domain/model"
	"github.com/polkiloo/pulperia/internal/domain/repository"
)

// OrderRepositoryStub keeps orders in memory. Fn fields override the default behaviour.
type OrderRepositoryStub struct {
	CreateFn         func(context.Context, model.Order) (*model.Order, error)
	GetByIDFn        func(context.Context, string) (*model.Order, error)
	ListByVendorFn   func(context.Context, string) ([]model.Order, error)
	ListByCustomerFn func(context.Context, string) ([]model.Order, error)
	UpdateStatusFn   func(context.Context, repository.StatusUpdate) (*model.Order, error)

	mu      sync.Mutex
	Orders  map[string]model.Order
	Updates []repository.StatusUpdate
}

// NewOrderRepositoryStub seeds the stub with orders.
func NewOrderRepositoryStub(orders ...model.Order) *OrderRepositoryStub {
	s := &OrderRepositoryStub{Orders: make(map[string]model.Order)}
	for _, o := range orders {
		s.Orders[o.ID] = o
	}
	return s
}

// Create stores order unless its ID is taken.
func (s *OrderRepositoryStub) Create(ctx context.Context, order model.Order) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Orders == nil {
		s.Orders = make(map[string]model.Order)
	}
	if _, exists := s.Orders[order.ID]; exists {
		return nil, domainErrors.ErrAlreadyExists
	}
	s.Orders[order.ID] = order
	return &order, nil
}

// GetByID returns a stored order or ErrNotFound.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, id string) (*model.Order, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.Orders[id]; ok {
		return &o, nil
	}
	return nil, domainErrors.ErrNotFound
}

// ListByVendor returns the vendor's stored orders.
func (s *OrderRepositoryStub) ListByVendor(ctx context.Context, vendorID string) ([]model.Order, error) {
	if s.ListByVendorFn != nil {
		return s.ListByVendorFn(ctx, vendorID)
	}
	return s.filter(func(o model.Order) bool { return o.VendorID == vendorID }), nil
}

// ListByCustomer returns the customer's stored orders.
func (s *OrderRepositoryStub) ListByCustomer(ctx context.Context, customerID string) ([]model.Order, error) {
	if s.ListByCustomerFn != nil {
		return s.ListByCustomerFn(ctx, customerID)
	}
	return s.filter(func(o model.Order) bool { return o.CustomerID == customerID }), nil
}

// UpdateStatus records the call and applies it while the stored status equals From.
func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, update repository.StatusUpdate) (*model.Order, error) {
	s.mu.Lock()
	s.Updates = append(s.Updates, update)
	s.mu.Unlock()
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, update)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.Orders[update.OrderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if o.Status != update.From {
		return nil, domainErrors.ErrIllegalTransition
	}
	o.Status = update.To
	o.CancelReason = update.CancelReason
	o.CancelledBy = update.CancelledBy
	s.Orders[o.ID] = o
	return &o, nil
}

func (s *OrderRepositoryStub) filter(keep func(model.Order) bool) []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.Orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

// PulperiaRepositoryStub keeps storefront state in memory.
type PulperiaRepositoryStub struct {
	SetOpenFn func(context.Context, string, bool) (*model.Pulperia, error)
	GetFn     func(context.Context, string) (*model.Pulperia, error)

	mu    sync.Mutex
	State map[string]model.Pulperia
}

// SetOpen stores the flag for vendorID.
func (s *PulperiaRepositoryStub) SetOpen(ctx context.Context, vendorID string, open bool) (*model.Pulperia, error) {
	if s.SetOpenFn != nil {
		return s.SetOpenFn(ctx, vendorID, open)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State == nil {
		s.State = make(map[string]model.Pulperia)
	}
	p := model.Pulperia{VendorID: vendorID, Open: open}
	s.State[vendorID] = p
	return &p, nil
}

// Get returns stored state or ErrNotFound.
func (s *PulperiaRepositoryStub) Get(ctx context.Context, vendorID string) (*model.Pulperia, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, vendorID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.State[vendorID]; ok {
		return &p, nil
	}
	return nil, domainErrors.ErrNotFound
}

var (
	_ repository.OrderRepository    = (*OrderRepositoryStub)(nil)
	_ repository.PulperiaRepository = (*PulperiaRepositoryStub)(nil)
)
