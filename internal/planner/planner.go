// Package planner applies drag gestures to stored plan item collections.
package planner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pbaille/plan/internal/domain"
	"github.com/pbaille/plan/internal/hierarchy"
	"github.com/pbaille/plan/internal/logging"
)

// Repository is the persistence side of a plan item collection
type Repository interface {
	ListPlanItems(experienceID string) ([]domain.PlanItem, error)
	ReplacePlanItems(experienceID string, items []domain.PlanItem) error
}

// ReorderHook is called after a reorder has been persisted
type ReorderHook func(experienceID string, res hierarchy.Result)

// ErrPersist wraps repository failures while saving a reorder
var ErrPersist = errors.New("persist reorder")

// Planner owns the reorder flow: load, interpret, apply, save, notify
type Planner struct {
	repo   Repository
	logger *logging.Logger

	mu         sync.RWMutex
	thresholds hierarchy.Thresholds
	hooks      []ReorderHook
}

// New creates a Planner using the default thresholds
func New(repo Repository, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Planner{
		repo:       repo,
		logger:     logger.With("planner"),
		thresholds: hierarchy.DefaultThresholds(),
	}
}

// Thresholds returns the thresholds used for new drags
func (p *Planner) Thresholds() hierarchy.Thresholds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.thresholds
}

// SetThresholds swaps the thresholds; safe while requests are in flight
func (p *Planner) SetThresholds(th hierarchy.Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.thresholds = th
	p.mu.Unlock()
	p.logger.Infof("thresholds set nesting=%v promotion=%v", th.Nesting, th.Promotion)
	return nil
}

// OnReorder registers a hook run after each persisted reorder
func (p *Planner) OnReorder(h ReorderHook) {
	p.mu.Lock()
	p.hooks = append(p.hooks, h)
	p.mu.Unlock()
}

// View returns the flattened rows of an experience's plan
func (p *Planner) View(experienceID string, expanded []string) ([]hierarchy.Row, error) {
	items, err := p.repo.ListPlanItems(experienceID)
	if err != nil {
		return nil, err
	}
	return hierarchy.Flatten(items, hierarchy.ExpandedSet(expanded)), nil
}

// Drop applies a finished drag to an experience. Missing items and failed
// integrity checks leave the stored collection as it was. Drops that change
// nothing are not persisted.
func (p *Planner) Drop(experienceID string, ev domain.DragEvent) (hierarchy.Result, error) {
	items, err := p.repo.ListPlanItems(experienceID)
	if err != nil {
		return hierarchy.Result{}, err
	}

	res, err := hierarchy.Reorder(hierarchy.NewDragContext(items, ev, p.Thresholds()))
	if err != nil {
		p.logger.Warnf("drop %s onto %s in %s aborted: %v", ev.ActiveID, ev.OverID, experienceID, err)
		return hierarchy.Result{}, err
	}
	if !res.Changed {
		p.logger.Debugf("drop %s onto itself in %s ignored", ev.ActiveID, experienceID)
		return res, nil
	}

	if err := p.repo.ReplacePlanItems(experienceID, res.Items); err != nil {
		p.logger.Errorf("save reorder of %s in %s: %v", res.MovedID, experienceID, err)
		return hierarchy.Result{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	p.logger.Infof("moved %s in %s dx=%v intent=%s", res.MovedID, experienceID, ev.DeltaX, res.Intent)

	p.mu.RLock()
	hooks := append([]ReorderHook(nil), p.hooks...)
	p.mu.RUnlock()
	for _, h := range hooks {
		h(experienceID, res)
	}
	return res, nil
}
