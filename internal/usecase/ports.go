package usecase

import (
	"context"

	"github.com/totegamma/passgate/internal/domain"
)

// ActiveQuery selects the pass that may open the gate for a plate today.
type ActiveQuery struct {
	PlateNorm string
	Today     string
	// Allowed applies to temporary passes dated Today.
	Allowed []string
	// PermanentAllowed applies to permanent passes regardless of date.
	PermanentAllowed []string
}

// PassRepository defines storage operations for passes.
type PassRepository interface {
	Create(ctx context.Context, pass domain.Pass) (domain.Pass, error)
	Update(ctx context.Context, pass domain.Pass) (domain.Pass, error)
	SetStatus(ctx context.Context, id uint, status domain.PassStatus) error
	SoftDelete(ctx context.Context, id uint) error
	Get(ctx context.Context, id uint) (domain.Pass, error)
	List(ctx context.Context, filter domain.PassFilter) ([]domain.Pass, error)
	// FindActive returns nil without error when nothing matches.
	FindActive(ctx context.Context, query ActiveQuery) (*domain.Pass, error)
}

// EventRepository is the append-only gate audit trail.
type EventRepository interface {
	Create(ctx context.Context, event domain.LprEvent) error
	List(ctx context.Context, filter domain.EventFilter) ([]domain.LprEvent, error)
}

// SettingsRepository stores gate settings rows; the latest row wins.
type SettingsRepository interface {
	// Latest returns nil without error when no row exists.
	Latest(ctx context.Context) (*domain.GateSettings, error)
	Create(ctx context.Context, settings domain.GateSettings) (domain.GateSettings, error)
	Update(ctx context.Context, settings domain.GateSettings) (domain.GateSettings, error)
}

// Notifier pushes pass change hints to live monitoring clients.
// Delivery is best effort and never fails the caller.
type Notifier interface {
	Notify(ctx context.Context, event string, notification domain.Notification)
}
