// Package hierarchy turns a flat, parent-linked plan item collection into
// its display order and applies drag gestures to it.
package hierarchy

import "github.com/pbaille/plan/internal/domain"

// Row is one entry of the flattened, pre-order view
type Row struct {
	Item        domain.PlanItem `json:"item"`
	Depth       int             `json:"depth"`
	IsChild     bool            `json:"is_child"`
	IsVisible   bool            `json:"is_visible"`
	HasChildren bool            `json:"has_children"`
}

// index is a read-only lookup over a collection
type index struct {
	items    []domain.PlanItem
	pos      map[string]int
	children map[string][]int
}

func newIndex(items []domain.PlanItem) *index {
	ix := &index{
		items:    items,
		pos:      make(map[string]int, len(items)),
		children: make(map[string][]int),
	}
	for i, it := range items {
		ix.pos[it.ID] = i
	}
	for i, it := range items {
		if ix.isRoot(it) {
			continue
		}
		pid := it.ParentID()
		ix.children[pid] = append(ix.children[pid], i)
	}
	return ix
}

func (ix *index) find(id string) (domain.PlanItem, bool) {
	i, ok := ix.pos[id]
	if !ok {
		return domain.PlanItem{}, false
	}
	return ix.items[i], true
}

// isRoot treats an item whose parent is missing from the collection as a
// root, so orphans stay reachable.
func (ix *index) isRoot(it domain.PlanItem) bool {
	if it.IsRoot() {
		return true
	}
	_, ok := ix.pos[it.ParentID()]
	return !ok
}

// effectiveParent is the parent id as seen by the hierarchy ("" for roots and orphans)
func (ix *index) effectiveParent(it domain.PlanItem) string {
	if ix.isRoot(it) {
		return ""
	}
	return it.ParentID()
}

// canAdopt reports whether id can become the parent of child without
// creating a third level.
func (ix *index) canAdopt(id, child string) bool {
	if id == "" || id == child {
		return false
	}
	p, ok := ix.find(id)
	return ok && ix.isRoot(p)
}

func (ix *index) hasChildren(id string) bool {
	return len(ix.children[id]) > 0
}

// Flatten walks items in pre-order: every root in collection order, each
// immediately followed by its descendants. Children of collapsed parents are
// kept but marked invisible.
func Flatten(items []domain.PlanItem, expanded map[string]bool) []Row {
	ix := newIndex(items)
	out := make([]Row, 0, len(items))
	seen := make(map[string]bool, len(items))

	var walk func(i, depth int, visible bool)
	walk = func(i, depth int, visible bool) {
		it := items[i]
		if seen[it.ID] {
			return
		}
		seen[it.ID] = true
		out = append(out, Row{
			Item:        it.Clone(),
			Depth:       depth,
			IsChild:     depth > 0,
			IsVisible:   visible,
			HasChildren: ix.hasChildren(it.ID),
		})
		childVisible := visible && expanded[it.ID]
		for _, c := range ix.children[it.ID] {
			walk(c, depth+1, childVisible)
		}
	}

	for i, it := range items {
		if ix.isRoot(it) {
			walk(i, 0, true)
		}
	}
	// Parent cycles are unreachable from any root.
	for i, it := range items {
		if !seen[it.ID] {
			walk(i, 0, true)
		}
	}
	return out
}

// VisibleRows keeps the rows a user can actually see and drop onto
func VisibleRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.IsVisible {
			out = append(out, r)
		}
	}
	return out
}

// ExpandedSet builds the lookup Flatten expects from a list of ids
func ExpandedSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	return set
}
