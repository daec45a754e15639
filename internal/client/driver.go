package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"cratedigger/internal/models"
)

const (
	PageSize     = 500
	SubBatchSize = 100
	// MaxOffset is the largest offset the API honours; later pages are clamped.
	MaxOffset = 5000
)

var (
	ErrCancelled      = errors.New("suggestion run cancelled")
	ErrAlreadyRunning = errors.New("suggestion run already in progress")
	ErrNoCrate        = errors.New("no crate selected")
)

// Suggester is the single suggestion call the driver repeats.
type Suggester interface {
	Suggest(ctx context.Context, req models.SuggestRequest) (*models.SuggestResponse, error)
}

// Progress is reported after every completed sub-batch.
type Progress struct {
	PageOffset       int
	BatchOffset      int
	BatchesProcessed int
	Total            int
}

// Driver accumulates suggestions for one crate across sequential sub-batches.
// Run starts a crate from the first page; FindMore continues with the next.
type Driver struct {
	suggester  Suggester
	OnProgress func(Progress)

	running   atomic.Bool
	cancelled atomic.Bool

	mu           sync.Mutex
	crateID      string
	nextPage     int
	suggestions  []models.Suggestion
	suggested    map[string]struct{}
	excluded     map[string]struct{}
	excludeOrder []string
}

func NewDriver(s Suggester) *Driver {
	return &Driver{
		suggester: s,
		suggested: make(map[string]struct{}),
		excluded:  make(map[string]struct{}),
	}
}

// Run resets the accumulated state for crateID and processes its first page.
func (d *Driver) Run(ctx context.Context, crateID string) ([]models.Suggestion, error) {
	if crateID == "" {
		return nil, ErrNoCrate
	}
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer d.running.Store(false)

	d.mu.Lock()
	d.crateID = crateID
	d.nextPage = 0
	d.suggestions = nil
	d.suggested = make(map[string]struct{})
	d.excluded = make(map[string]struct{})
	d.excludeOrder = nil
	d.mu.Unlock()

	return d.runPage(ctx)
}

// FindMore processes the page after the last one run for the current crate.
func (d *Driver) FindMore(ctx context.Context) ([]models.Suggestion, error) {
	if !d.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer d.running.Store(false)

	d.mu.Lock()
	crateID := d.crateID
	d.mu.Unlock()
	if crateID == "" {
		return nil, ErrNoCrate
	}
	return d.runPage(ctx)
}

// Cancel stops the current run before its next sub-batch. Results of a
// sub-batch already in flight are discarded.
func (d *Driver) Cancel() {
	d.cancelled.Store(true)
}

// MarkSeen excludes albumIDs from every later sub-batch.
func (d *Driver) MarkSeen(albumIDs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range albumIDs {
		d.exclude(id)
	}
}

// Suggestions returns a copy of everything accumulated so far, in first-seen order.
func (d *Driver) Suggestions() []models.Suggestion {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Suggestion, len(d.suggestions))
	copy(out, d.suggestions)
	return out
}

// exclude must be called with mu held.
func (d *Driver) exclude(id string) {
	if id == "" {
		return
	}
	if _, ok := d.excluded[id]; ok {
		return
	}
	d.excluded[id] = struct{}{}
	d.excludeOrder = append(d.excludeOrder, id)
}

func (d *Driver) runPage(ctx context.Context) ([]models.Suggestion, error) {
	d.cancelled.Store(false)

	d.mu.Lock()
	crateID := d.crateID
	pageOffset := d.nextPage
	d.nextPage = pageOffset + PageSize
	d.mu.Unlock()

	batches := 0
	for batchOffset := 0; batchOffset < PageSize; batchOffset += SubBatchSize {
		if d.cancelled.Load() {
			return d.Suggestions(), ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			return d.Suggestions(), err
		}
		offset := pageOffset + batchOffset
		if offset > MaxOffset {
			log.Debug().Str("crateID", crateID).Int("offset", offset).Msg("Reached maximum suggestion offset")
			break
		}

		limit := SubBatchSize
		d.mu.Lock()
		exclude := make([]string, len(d.excludeOrder))
		copy(exclude, d.excludeOrder)
		d.mu.Unlock()

		resp, err := d.suggester.Suggest(ctx, models.SuggestRequest{
			CrateID:         crateID,
			Limit:           &limit,
			Offset:          &offset,
			ExcludeAlbumIDs: exclude,
		})
		if d.cancelled.Load() {
			return d.Suggestions(), ErrCancelled
		}
		if err != nil {
			log.Error().Err(err).Str("crateID", crateID).Int("offset", offset).Msg("Suggestion sub-batch failed")
			return d.Suggestions(), err
		}

		total := d.merge(resp.Suggestions)
		batches++
		if d.OnProgress != nil {
			d.OnProgress(Progress{
				PageOffset:       pageOffset,
				BatchOffset:      batchOffset,
				BatchesProcessed: batches,
				Total:            total,
			})
		}

		if resp.CandidatesCount == 0 {
			log.Debug().Str("crateID", crateID).Int("offset", offset).Msg("No candidates left, stopping page early")
			break
		}
	}

	return d.Suggestions(), nil
}

// merge adds unseen suggestions and returns the accumulated total.
func (d *Driver) merge(batch []models.Suggestion) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range batch {
		d.exclude(s.AlbumID)
		if _, ok := d.suggested[s.AlbumID]; ok {
			continue
		}
		d.suggested[s.AlbumID] = struct{}{}
		d.suggestions = append(d.suggestions, s)
	}
	return len(d.suggestions)
}
