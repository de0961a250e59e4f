package hierarchy

import "github.com/pbaille/plan/internal/domain"

// HierarchyChange is the presentation hint for a completed move
type HierarchyChange string

const (
	ChangeNone     HierarchyChange = "none"
	ChangeNested   HierarchyChange = "nested"
	ChangePromoted HierarchyChange = "promoted"
)

// Result is a successful reorder. Changed is false for drops that leave
// the collection as it was (an item dropped onto itself).
type Result struct {
	Items   []domain.PlanItem `json:"items"`
	MovedID string            `json:"moved_id"`
	Intent  Intent            `json:"intent"`
	Changed bool              `json:"changed"`
}

// Change maps the intent onto the nested/promoted hint
func (r Result) Change() HierarchyChange {
	switch r.Intent.Kind {
	case Nest, Reparent:
		return ChangeNested
	case Promote, DemoteToRoot:
		return ChangePromoted
	default:
		return ChangeNone
	}
}

// Reorder interprets a drag and applies it. On error nothing should be
// emitted; the caller's collection stays authoritative.
func Reorder(dc DragContext) (Result, error) {
	intent, err := Interpret(dc)
	if err != nil {
		return Result{}, err
	}

	if dc.ActiveID == dc.OverID {
		items := make([]domain.PlanItem, len(dc.Items))
		for i, it := range dc.Items {
			items[i] = it.Clone()
		}
		return Result{Items: items, MovedID: dc.ActiveID, Intent: intent}, nil
	}

	items, err := Apply(dc.Items, dc.ActiveID, dc.OverID, intent)
	if err != nil {
		return Result{}, err
	}
	return Result{Items: items, MovedID: dc.ActiveID, Intent: intent, Changed: true}, nil
}
