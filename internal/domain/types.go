package domain

import "time"

// Experience is a travel plan owning an ordered collection of plan items
type Experience struct {
	ID          string    `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Destination string    `json:"destination,omitempty" yaml:"destination,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// PlanItem is one step of an experience. The tree is implicit: Parent
// references another item of the same collection, nil means root.
// Position in the collection is the order.
type PlanItem struct {
	ID           string  `json:"id" yaml:"id"`
	Text         string  `json:"text" yaml:"text"`
	Parent       *string `json:"parent,omitempty" yaml:"parent,omitempty"`
	Cost         float64 `json:"cost,omitempty" yaml:"cost,omitempty"`
	PlanningDays int     `json:"planning_days,omitempty" yaml:"planning_days,omitempty"`
	URL          string  `json:"url,omitempty" yaml:"url,omitempty"`
}

// IsRoot reports whether the item has no parent reference
func (p PlanItem) IsRoot() bool {
	return p.Parent == nil || *p.Parent == ""
}

// ParentID returns the parent id or "" for roots
func (p PlanItem) ParentID() string {
	if p.IsRoot() {
		return ""
	}
	return *p.Parent
}

// Clone returns a copy that shares no pointers with p
func (p PlanItem) Clone() PlanItem {
	c := p
	if p.Parent != nil {
		parent := *p.Parent
		c.Parent = &parent
	}
	return c
}

// DragEvent is what a drag-and-drop layer reports when a drag ends
type DragEvent struct {
	ActiveID string   `json:"active_id"`
	OverID   string   `json:"over_id"`
	DeltaX   float64  `json:"delta_x"`
	Expanded []string `json:"expanded,omitempty"`
}
