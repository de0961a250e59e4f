package store

import (
	"path/filepath"
	"testing"

	"github.com/pbaille/plan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ids(items []domain.PlanItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestStore_Experiences(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AddExperience("  ", "")
	assert.ErrorIs(t, err, ErrInvalid)

	exp, err := s.AddExperience("Kyoto in spring", "Kyoto")
	require.NoError(t, err)
	assert.NotEmpty(t, exp.ID)

	got, err := s.GetExperience(exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kyoto in spring", got.Name)
	assert.Equal(t, "Kyoto", got.Destination)

	resolved, err := s.ResolveExperience(exp.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, exp.ID, resolved.ID)

	list, err := s.ListExperiences()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetExperience("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteExperience(exp.ID))
	assert.ErrorIs(t, s.DeleteExperience(exp.ID), ErrNotFound)
}

func TestStore_AddPlanItem(t *testing.T) {
	s := newTestStore(t)
	exp, err := s.AddExperience("Lisbon", "")
	require.NoError(t, err)

	_, err = s.AddPlanItem(exp.ID, domain.PlanItem{Text: ""})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = s.AddPlanItem("missing", domain.PlanItem{Text: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	flights, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "Book flights", Cost: 420})
	require.NoError(t, err)
	seat, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "Pick seat", Parent: &flights.ID})
	require.NoError(t, err)

	// children cannot have children
	_, err = s.AddPlanItem(exp.ID, domain.PlanItem{Text: "Window", Parent: &seat.ID})
	assert.ErrorIs(t, err, ErrInvalid)

	ghost := "ghost"
	_, err = s.AddPlanItem(exp.ID, domain.PlanItem{Text: "Orphan", Parent: &ghost})
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := s.ListPlanItems(exp.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{flights.ID, seat.ID}, ids(items))
	assert.Nil(t, items[0].Parent)
	assert.Equal(t, 420.0, items[0].Cost)
	require.NotNil(t, items[1].Parent)
	assert.Equal(t, flights.ID, *items[1].Parent)
}

func TestStore_ReplacePlanItems(t *testing.T) {
	s := newTestStore(t)
	exp, err := s.AddExperience("Oslo", "")
	require.NoError(t, err)

	a, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "a"})
	require.NoError(t, err)
	b, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "b", Parent: &a.ID})
	require.NoError(t, err)
	c, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "c"})
	require.NoError(t, err)

	items, err := s.ListPlanItems(exp.ID)
	require.NoError(t, err)

	// promote b above a
	reordered := []domain.PlanItem{items[1], items[0], items[2]}
	reordered[0].Parent = nil
	require.NoError(t, s.ReplacePlanItems(exp.ID, reordered))

	got, err := s.ListPlanItems(exp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID, c.ID}, ids(got))
	assert.Nil(t, got[0].Parent)

	t.Run("rejects missing items", func(t *testing.T) {
		err := s.ReplacePlanItems(exp.ID, got[:2])
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("rejects foreign ids", func(t *testing.T) {
		bad := append([]domain.PlanItem{}, got...)
		bad[2] = domain.PlanItem{ID: "other", Text: "x"}
		assert.ErrorIs(t, s.ReplacePlanItems(exp.ID, bad), ErrInvalid)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		bad := []domain.PlanItem{got[0], got[0], got[2]}
		assert.ErrorIs(t, s.ReplacePlanItems(exp.ID, bad), ErrInvalid)
	})

	t.Run("rejects broken parents", func(t *testing.T) {
		withParents := func(parents ...string) []domain.PlanItem {
			out := make([]domain.PlanItem, len(got))
			for i, it := range got {
				out[i] = it.Clone()
				if parents[i] != "" {
					p := parents[i]
					out[i].Parent = &p
				}
			}
			return out
		}

		// got is b, a, c
		assert.ErrorIs(t, s.ReplacePlanItems(exp.ID, withParents("", b.ID, a.ID)), ErrInvalid, "third level")
		assert.ErrorIs(t, s.ReplacePlanItems(exp.ID, withParents("", "ghost", "")), ErrInvalid, "dangling parent")
		assert.ErrorIs(t, s.ReplacePlanItems(exp.ID, withParents("", "", c.ID)), ErrInvalid, "self parent")
	})

	t.Run("failed replace leaves order untouched", func(t *testing.T) {
		after, err := s.ListPlanItems(exp.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, a.ID, c.ID}, ids(after))
		for _, it := range after {
			assert.True(t, it.IsRoot(), it.Text)
		}
	})
}

func TestStore_DeletePlanItemDetachesChildren(t *testing.T) {
	s := newTestStore(t)
	exp, err := s.AddExperience("Rome", "")
	require.NoError(t, err)

	a, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "a"})
	require.NoError(t, err)
	b, err := s.AddPlanItem(exp.ID, domain.PlanItem{Text: "b", Parent: &a.ID})
	require.NoError(t, err)

	require.NoError(t, s.DeletePlanItem(exp.ID, a.ID))
	assert.ErrorIs(t, s.DeletePlanItem(exp.ID, a.ID), ErrNotFound)

	items, err := s.ListPlanItems(exp.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Nil(t, items[0].Parent)
}
