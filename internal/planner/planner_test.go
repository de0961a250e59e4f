package planner

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pbaille/plan/internal/domain"
	"github.com/pbaille/plan/internal/hierarchy"
	"github.com/pbaille/plan/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	items   map[string][]domain.PlanItem
	saveErr error
	saves   int
}

func (m *memRepo) ListPlanItems(experienceID string) ([]domain.PlanItem, error) {
	items, ok := m.items[experienceID]
	if !ok {
		return nil, errors.New("no such experience")
	}
	out := make([]domain.PlanItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out, nil
}

func (m *memRepo) ReplacePlanItems(experienceID string, items []domain.PlanItem) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[experienceID] = items
	return nil
}

func ptr(s string) *string { return &s }

func newRepo() *memRepo {
	return &memRepo{items: map[string][]domain.PlanItem{
		"exp": {
			{ID: "1", Text: "Flights"},
			{ID: "2", Text: "Seats", Parent: ptr("1")},
			{ID: "3", Text: "Hotel"},
		},
	}}
}

func TestDrop_PersistsAndNotifies(t *testing.T) {
	repo := newRepo()
	p := New(repo, nil)

	var notified []string
	p.OnReorder(func(experienceID string, res hierarchy.Result) {
		notified = append(notified, experienceID+":"+res.MovedID+":"+string(res.Change()))
		assert.Len(t, res.Items, 3)
	})

	res, err := p.Drop("exp", domain.DragEvent{ActiveID: "2", OverID: "1", DeltaX: -50})
	require.NoError(t, err)
	assert.Equal(t, hierarchy.Promote, res.Intent.Kind)
	assert.Equal(t, hierarchy.ChangePromoted, res.Change())

	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, "2", repo.items["exp"][0].ID)
	assert.Nil(t, repo.items["exp"][0].Parent)
	assert.Equal(t, []string{"exp:2:promoted"}, notified)
}

func TestDrop_SelfIsNotPersisted(t *testing.T) {
	repo := newRepo()
	p := New(repo, nil)

	res, err := p.Drop("exp", domain.DragEvent{ActiveID: "3", OverID: "3", DeltaX: 100})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Zero(t, repo.saves)
}

func TestDrop_MissingItemLeavesStateAlone(t *testing.T) {
	repo := newRepo()
	var buf bytes.Buffer
	p := New(repo, logging.New(&buf, logging.LevelDebug))

	_, err := p.Drop("exp", domain.DragEvent{ActiveID: "9", OverID: "1"})
	assert.ErrorIs(t, err, hierarchy.ErrItemNotFound)
	assert.Zero(t, repo.saves)
	assert.Contains(t, buf.String(), "aborted")
}

func TestDrop_PersistFailure(t *testing.T) {
	repo := newRepo()
	repo.saveErr = errors.New("disk full")
	p := New(repo, nil)

	called := false
	p.OnReorder(func(string, hierarchy.Result) { called = true })

	_, err := p.Drop("exp", domain.DragEvent{ActiveID: "3", OverID: "1"})
	assert.ErrorIs(t, err, ErrPersist)
	assert.False(t, called)
	assert.Equal(t, "1", repo.items["exp"][0].ID)
}

func TestDrop_UsesConfiguredThresholds(t *testing.T) {
	repo := newRepo()
	p := New(repo, nil)
	require.NoError(t, p.SetThresholds(hierarchy.Thresholds{Nesting: 100, Promotion: -100}))

	res, err := p.Drop("exp", domain.DragEvent{ActiveID: "3", OverID: "1", DeltaX: 50})
	require.NoError(t, err)
	assert.Equal(t, hierarchy.NoChange, res.Intent.Kind)

	assert.Error(t, p.SetThresholds(hierarchy.Thresholds{Nesting: -1, Promotion: -100}))
	assert.Equal(t, 100.0, p.Thresholds().Nesting)
}

func TestView(t *testing.T) {
	p := New(newRepo(), nil)

	rows, err := p.View("exp", []string{"1"})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[1].IsChild)
	assert.True(t, rows[1].IsVisible)

	_, err = p.View("missing", nil)
	assert.Error(t, err)
}
