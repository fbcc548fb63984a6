package repository

import (
	"context"
	"errors"
	"time"

	"github.com/siasic/seismic-watch/internal/models"
)

var ErrNotFound = errors.New("event not found")

type Filter struct {
	Limit        int
	Offset       int
	Since        *time.Time
	Until        *time.Time
	MinMagnitude *float64
	MaxDepthKm   *float64
	Regime       *models.DepthRegime
	InSantander  *bool
	Source       *models.SourceTag
}

// EventRepository is the cumulative catalog. Polls of overlapping feed
// windows re-deliver the same events, so Add reports whether the row was
// new and duplicates are absorbed rather than erroring.
type EventRepository interface {
	Add(ctx context.Context, e *models.SeismicEvent) (bool, error)
	AddBatch(ctx context.Context, events []models.SeismicEvent) (int, error)
	GetByID(ctx context.Context, id string) (*models.SeismicEvent, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, opts Filter) ([]models.SeismicEvent, error)
	Count(ctx context.Context) (int, error)
}
