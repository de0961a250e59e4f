package hierarchy

import (
	"fmt"

	"github.com/pbaille/plan/internal/domain"
)

// Apply returns a new collection with the dragged item moved onto the
// target's slot and its parent rewritten according to intent. A promoted
// item lands on its former parent's slot instead, right above it.
// items is never modified.
func Apply(items []domain.PlanItem, activeID, overID string, intent Intent) ([]domain.PlanItem, error) {
	out := make([]domain.PlanItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}

	oldIndex := indexOf(out, activeID)
	if oldIndex < 0 {
		return nil, fmt.Errorf("dragged %q: %w", activeID, ErrItemNotFound)
	}
	newIndex := indexOf(out, overID)
	if newIndex < 0 {
		return nil, fmt.Errorf("target %q: %w", overID, ErrItemNotFound)
	}

	moved := &out[oldIndex]
	switch intent.Kind {
	case Promote:
		if former := indexOf(out, moved.ParentID()); former >= 0 {
			newIndex = former
			if oldIndex < former {
				// the parent shifts up once the child is taken out
				newIndex = former - 1
			}
		}
		moved.Parent = nil
	case DemoteToRoot:
		moved.Parent = nil
	case Nest, Reparent:
		pid := intent.ParentID
		moved.Parent = &pid
	}

	out = arrayMove(out, oldIndex, newIndex)

	if err := verify(items, out, activeID, intent.Kind == Nest || intent.Kind == Reparent); err != nil {
		return nil, err
	}
	return out, nil
}

// arrayMove removes the element at from and reinserts it so that it ends up at index to
func arrayMove(items []domain.PlanItem, from, to int) []domain.PlanItem {
	if from == to {
		return items
	}
	it := items[from]
	items = append(items[:from], items[from+1:]...)
	items = append(items[:to], append([]domain.PlanItem{it}, items[to:]...)...)
	return items
}

func indexOf(items []domain.PlanItem, id string) int {
	if id == "" {
		return -1
	}
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// verify checks that after is a permutation of before. When the moved item
// got a new parent it must not end up three levels deep.
func verify(before, after []domain.PlanItem, movedID string, reparented bool) error {
	if len(after) == 0 && len(before) > 0 {
		return fmt.Errorf("empty result: %w", ErrIntegrity)
	}
	if len(before) != len(after) {
		return fmt.Errorf("item count %d != %d: %w", len(after), len(before), ErrIntegrity)
	}

	counts := make(map[string]int, len(before))
	for _, it := range before {
		counts[it.ID]++
	}
	for _, it := range after {
		if it.ID == "" {
			return fmt.Errorf("item without id: %w", ErrIntegrity)
		}
		counts[it.ID]--
	}
	for id, n := range counts {
		if n != 0 {
			return fmt.Errorf("id %q not preserved: %w", id, ErrIntegrity)
		}
	}

	ix := newIndex(after)
	moved, ok := ix.find(movedID)
	if !ok {
		return fmt.Errorf("moved item %q lost: %w", movedID, ErrIntegrity)
	}
	if !reparented {
		return nil
	}
	if ix.effectiveParent(moved) != "" && ix.hasChildren(moved.ID) {
		return fmt.Errorf("item %q would be three levels deep: %w", movedID, ErrIntegrity)
	}
	if p := ix.effectiveParent(moved); p != "" {
		parent, _ := ix.find(p)
		if !ix.isRoot(parent) {
			return fmt.Errorf("parent %q of %q is itself nested: %w", p, movedID, ErrIntegrity)
		}
	}
	return nil
}
