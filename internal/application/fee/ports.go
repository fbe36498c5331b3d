package fee

import (
	"context"
	"time"

	"github.com/schoolfees/backend/internal/domain/shared/strategy"
)

// DashboardCache stores rendered dashboards per (student, session).
// Get reports false on a miss.
type DashboardCache interface {
	Get(ctx context.Context, studentID string, sessionID int, dst any) (bool, error)
	Set(ctx context.Context, studentID string, sessionID int, v any) error
	Invalidate(ctx context.Context, studentID string, sessionID int) error
}

// AllocationStrategyGetter looks up bill allocation strategies.
// This decouples the collection service from the concrete registry.
type AllocationStrategyGetter interface {
	GetAllocationStrategyOrDefault(name string) strategy.BillAllocationStrategy
}

// BillingSettings are the billing rules that come from configuration
type BillingSettings struct {
	DefaultDueDay      int
	LateFeeName        string
	AllocationStrategy string
	Location           *time.Location
}

func (b BillingSettings) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}
