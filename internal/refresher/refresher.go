package refresher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/hustler-market/internal/models"
	"github.com/aman-zulfiqar/hustler-market/internal/storage"
	"github.com/sirupsen/logrus"
)

// Target is one (game, location) pair whose markets are kept warm
type Target struct {
	GameID   string
	Location string
}

func (t Target) String() string {
	return t.GameID + "/" + t.Location
}

// MarketWriter is the subset of storage.SnapshotCache the refresher writes to
type MarketWriter interface {
	PutMarket(ctx context.Context, snap *models.MarketSnapshot) error
}

// Refresher polls the indexer and mirrors market snapshots into the cache
type Refresher struct {
	source       storage.StateProvider
	sink         MarketWriter
	targets      []Target
	pollInterval time.Duration
	onUpdate     storage.MarketHandler
	logger       *logrus.Logger

	mu      sync.RWMutex
	running bool
	last    map[string]float64 // spot price per market key, for change logging
}

// Config holds configuration for the refresher
type Config struct {
	Source       storage.StateProvider
	Sink         MarketWriter
	Targets      []Target
	PollInterval time.Duration
	// OnUpdate, when set, is called with every snapshot after it is written
	OnUpdate storage.MarketHandler
	Logger   *logrus.Logger
}

// New creates a new refresher
func New(cfg Config) (*Refresher, error) {
	if cfg.Source == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("refresher needs a source and a sink")
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("refresher needs at least one target")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Refresher{
		source:       cfg.Source,
		sink:         cfg.Sink,
		targets:      cfg.Targets,
		pollInterval: cfg.PollInterval,
		onUpdate:     cfg.OnUpdate,
		logger:       cfg.Logger,
		last:         make(map[string]float64),
	}, nil
}

// Start refreshes immediately and then on every tick until ctx is done
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("refresher already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.logger.WithFields(logrus.Fields{
		"interval": r.pollInterval,
		"targets":  len(r.targets),
	}).Info("starting market refresh")

	r.refreshAndLog(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refreshAndLog(ctx)
		}
	}
}

// Running reports whether Start is active
func (r *Refresher) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Refresher) refreshAndLog(ctx context.Context) {
	n, err := r.RefreshOnce(ctx)
	if err != nil {
		r.logger.WithError(err).Error("refresh error")
		return
	}
	r.logger.WithField("markets", n).Debug("refresh complete")
}

// RefreshOnce fetches every target once and returns how many snapshots were written.
// A failing target does not stop the others; the first error is returned.
func (r *Refresher) RefreshOnce(ctx context.Context) (int, error) {
	var (
		written  int
		firstErr error
	)

	for _, t := range r.targets {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		snaps, err := r.source.Markets(ctx, t.GameID, t.Location)
		if err != nil {
			r.logger.WithError(err).WithField("target", t.String()).Warn("failed to fetch markets")
			if firstErr == nil {
				firstErr = fmt.Errorf("refresh %s: %w", t, err)
			}
			continue
		}

		for _, snap := range snaps {
			if err := r.sink.PutMarket(ctx, snap); err != nil {
				r.logger.WithError(err).WithField("drug", snap.Drug).Warn("failed to store market")
				if firstErr == nil {
					firstErr = fmt.Errorf("store %s/%s: %w", t, snap.Drug, err)
				}
				continue
			}
			written++
			r.noteChange(t, snap)
			if r.onUpdate != nil {
				r.onUpdate(snap)
			}
		}
	}

	return written, firstErr
}

func (r *Refresher) noteChange(t Target, snap *models.MarketSnapshot) {
	key := t.String() + "/" + snap.Drug

	r.mu.Lock()
	prev, seen := r.last[key]
	r.last[key] = snap.Price
	r.mu.Unlock()

	if seen && prev != snap.Price {
		r.logger.WithFields(logrus.Fields{
			"market": key,
			"from":   fmt.Sprintf("%.4f", prev),
			"to":     fmt.Sprintf("%.4f", snap.Price),
		}).Info("price moved")
	}
}
