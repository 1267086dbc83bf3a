package uow

import (
	"context"
	"errors"

	domainbooking "stayly/internal/domain/booking"
	domainproperty "stayly/internal/domain/property"
)

// ErrConcurrentUpdate is returned when an aggregate changed since it was loaded.
var ErrConcurrentUpdate = errors.New("uow: concurrent update detected")

// UnitOfWork scopes repositories to one transaction.
type UnitOfWork interface {
	Properties() domainproperty.Repository
	Bookings() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units that carry a driver session in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
