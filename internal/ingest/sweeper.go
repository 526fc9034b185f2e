package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/memohai/roastery/internal/storage"
)

// ErrListingUnsupported is returned when the blob store cannot enumerate keys.
var ErrListingUnsupported = errors.New("storage backend cannot list objects")

// ReferenceSource reports which storage keys are still linked from records.
type ReferenceSource interface {
	ImageKeys(ctx context.Context) (map[string]struct{}, error)
}

// SweepReport summarizes one orphan scan.
type SweepReport struct {
	Scanned int                  `json:"scanned"`
	Orphans []storage.ObjectInfo `json:"orphans"`
	Deleted int                  `json:"deleted"`
	Failed  int                  `json:"failed"`
}

// Sweeper finds blobs no record references. Blobs younger than minAge are
// skipped so in-flight ingestions are never mistaken for orphans.
type Sweeper struct {
	blobs    storage.Provider
	lister   storage.Lister
	refs     ReferenceSource
	minAge   time.Duration
	observer Observer
	logger   *slog.Logger
	now      func() time.Time

	mu   sync.Mutex
	cron *cron.Cron
}

func NewSweeper(log *slog.Logger, blobs storage.Provider, refs ReferenceSource, minAge time.Duration, observer Observer) (*Sweeper, error) {
	if log == nil {
		log = slog.Default()
	}
	lister, ok := blobs.(storage.Lister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Sweeper{
		blobs:    blobs,
		lister:   lister,
		refs:     refs,
		minAge:   minAge,
		observer: observer,
		logger:   log.With(slog.String("service", "orphan_sweeper")),
		now:      time.Now,
	}, nil
}

// Sweep lists orphans and, when remove is set, deletes them.
func (s *Sweeper) Sweep(ctx context.Context, remove bool) (SweepReport, error) {
	// Listing before reading references means a blob linked in between is
	// still seen as referenced.
	objects, err := s.lister.List(ctx, "")
	if err != nil {
		return SweepReport{}, fmt.Errorf("list blobs: %w", err)
	}
	referenced, err := s.refs.ImageKeys(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("load references: %w", err)
	}

	report := SweepReport{Scanned: len(objects), Orphans: []storage.ObjectInfo{}}
	cutoff := s.now().Add(-s.minAge)
	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if !obj.ModTime.IsZero() && obj.ModTime.After(cutoff) {
			continue
		}
		report.Orphans = append(report.Orphans, obj)
		if !remove {
			continue
		}
		if err := s.blobs.Delete(ctx, obj.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			report.Failed++
			s.logger.Warn("orphan delete failed", slog.String("key", obj.Key), slog.Any("error", err))
			continue
		}
		report.Deleted++
	}
	s.observer.RecordOrphans(len(report.Orphans), report.Deleted)
	s.logger.Info("orphan sweep finished",
		slog.Int("scanned", report.Scanned),
		slog.Int("orphans", len(report.Orphans)),
		slog.Int("deleted", report.Deleted),
		slog.Int("failed", report.Failed))
	return report, nil
}

// Start schedules a deleting sweep on the cron spec.
func (s *Sweeper) Start(spec string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("sweeper already started")
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if _, err := s.Sweep(ctx, true); err != nil {
			s.logger.Error("scheduled orphan sweep failed", slog.Any("error", err))
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("orphan sweep scheduled", slog.String("spec", spec))
	return nil
}

// Stop halts the schedule and waits for a running sweep or ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
