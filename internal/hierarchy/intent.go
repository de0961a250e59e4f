package hierarchy

import (
	"errors"
	"fmt"

	"github.com/pbaille/plan/internal/domain"
)

// Default horizontal drag thresholds, in pixels
const (
	NestingThreshold   = 40
	PromotionThreshold = -40
)

var (
	// ErrItemNotFound is returned when the dragged or target id is not in the collection
	ErrItemNotFound = errors.New("plan item not found")
	// ErrIntegrity is returned when a computed collection fails its post-conditions
	ErrIntegrity = errors.New("reorder integrity check failed")
)

// Thresholds control how far a drag has to travel sideways to change structure
type Thresholds struct {
	Nesting   float64 `json:"nesting" yaml:"nesting"`
	Promotion float64 `json:"promotion" yaml:"promotion"`
}

// DefaultThresholds returns the 40px/-40px pair
func DefaultThresholds() Thresholds {
	return Thresholds{Nesting: NestingThreshold, Promotion: PromotionThreshold}
}

func (t Thresholds) nesting(dx float64) bool   { return dx >= t.Nesting }
func (t Thresholds) promotion(dx float64) bool { return dx <= t.Promotion }

// Validate rejects thresholds without a dead zone around zero
func (t Thresholds) Validate() error {
	if t.Nesting <= 0 {
		return fmt.Errorf("nesting threshold must be positive, got %v", t.Nesting)
	}
	if t.Promotion >= 0 {
		return fmt.Errorf("promotion threshold must be negative, got %v", t.Promotion)
	}
	return nil
}

// DragContext is everything a completed drag needs to be interpreted
type DragContext struct {
	ActiveID   string
	OverID     string
	DeltaX     float64
	Items      []domain.PlanItem
	Expanded   map[string]bool
	Thresholds Thresholds
}

// NewDragContext builds a context from a drag event
func NewDragContext(items []domain.PlanItem, ev domain.DragEvent, th Thresholds) DragContext {
	return DragContext{
		ActiveID:   ev.ActiveID,
		OverID:     ev.OverID,
		DeltaX:     ev.DeltaX,
		Items:      items,
		Expanded:   ExpandedSet(ev.Expanded),
		Thresholds: th,
	}
}

// IntentKind is the structural outcome of a drag
type IntentKind int

const (
	NoChange IntentKind = iota
	Promote
	Nest
	Reparent
	DemoteToRoot
)

func (k IntentKind) String() string {
	switch k {
	case Promote:
		return "promote"
	case Nest:
		return "nest"
	case Reparent:
		return "reparent"
	case DemoteToRoot:
		return "demote_to_root"
	default:
		return "no_change"
	}
}

// MarshalText lets intents travel as strings in JSON
func (k IntentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *IntentKind) UnmarshalText(b []byte) error {
	for _, c := range []IntentKind{NoChange, Promote, Nest, Reparent, DemoteToRoot} {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown intent kind %q", b)
}

// Intent is the outcome of interpreting one drag. ParentID is set for Nest and Reparent.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	ParentID string     `json:"parent_id,omitempty"`
}

func (i Intent) String() string {
	if i.ParentID != "" {
		return fmt.Sprintf("%s(%s)", i.Kind, i.ParentID)
	}
	return i.Kind.String()
}

// Interpret classifies a drag. The first matching rule wins:
// promote, nest, reparent as sibling of a child target, demote onto a root
// target, otherwise leave the hierarchy alone. A nesting drag with no
// valid parent keeps the dragged item's parent unchanged.
func Interpret(dc DragContext) (Intent, error) {
	ix := newIndex(dc.Items)
	dragged, ok := ix.find(dc.ActiveID)
	if !ok {
		return Intent{}, fmt.Errorf("dragged %q: %w", dc.ActiveID, ErrItemNotFound)
	}
	target, ok := ix.find(dc.OverID)
	if !ok {
		return Intent{}, fmt.Errorf("target %q: %w", dc.OverID, ErrItemNotFound)
	}
	if dragged.ID == target.ID {
		return Intent{Kind: NoChange}, nil
	}

	nesting := dc.Thresholds.nesting(dc.DeltaX)
	promotion := dc.Thresholds.promotion(dc.DeltaX)

	draggedParent := ix.effectiveParent(dragged)
	targetParent := ix.effectiveParent(target)
	draggedHasChildren := ix.hasChildren(dragged.ID)

	if promotion && draggedParent != "" {
		return Intent{Kind: Promote}, nil
	}

	if nesting && draggedParent == "" && !draggedHasChildren {
		if pid := nestParent(dc, ix, target); pid != "" {
			return Intent{Kind: Nest, ParentID: pid}, nil
		}
		// nothing to nest under: plain move, the item stays a root
		return Intent{Kind: NoChange}, nil
	}

	if targetParent != "" && draggedParent != targetParent && !promotion && !draggedHasChildren && ix.canAdopt(targetParent, dragged.ID) {
		return Intent{Kind: Reparent, ParentID: targetParent}, nil
	}

	if targetParent == "" && draggedParent != "" && !nesting {
		return Intent{Kind: DemoteToRoot}, nil
	}

	return Intent{Kind: NoChange}, nil
}

// nestParent picks the new parent for a nesting drag: the target when it is
// a root, else the row above the dragged item (or that row's parent).
func nestParent(dc DragContext, ix *index, target domain.PlanItem) string {
	if ix.isRoot(target) && target.ID != dc.ActiveID {
		return target.ID
	}

	pid := aboveParent(dc, ix)
	if !ix.canAdopt(pid, dc.ActiveID) {
		return ""
	}
	return pid
}

func aboveParent(dc DragContext, ix *index) string {
	rows := VisibleRows(Flatten(dc.Items, dc.Expanded))
	for i, r := range rows {
		if r.Item.ID != dc.ActiveID {
			continue
		}
		if i == 0 {
			return ""
		}
		above := rows[i-1].Item
		if ix.isRoot(above) {
			return above.ID
		}
		return ix.effectiveParent(above)
	}
	return ""
}
