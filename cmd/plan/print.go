package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/pbaille/plan/internal/domain"
	"github.com/pbaille/plan/internal/hierarchy"
)

var (
	rootStyle  = color.New(color.Bold)
	childStyle = color.New(color.Faint)
	movedStyle = color.New(color.FgHiGreen, color.Bold)
	idStyle    = color.New(color.FgHiBlack)
)

func printExperiences(w io.Writer, exps []domain.Experience) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 50
	tbl.AddRow(rootStyle.Sprint("ID"), rootStyle.Sprint("Name"), rootStyle.Sprint("Destination"), rootStyle.Sprint("Created"))
	for _, e := range exps {
		tbl.AddRow(shortID(e.ID), e.Name, e.Destination, e.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintln(w, tbl)
}

// printTree renders visible rows, marking collapsed parents with "+" and the
// moved item with its hierarchy change
func printTree(w io.Writer, rows []hierarchy.Row, movedID string, change hierarchy.HierarchyChange) {
	for _, r := range rows {
		if !r.IsVisible {
			continue
		}

		marker := "-"
		if r.HasChildren {
			marker = "+"
			if hasVisibleChild(rows, r.Item.ID) {
				marker = "v"
			}
		}

		style := rootStyle
		if r.IsChild {
			style = childStyle
		}
		if r.Item.ID == movedID {
			style = movedStyle
		}

		line := fmt.Sprintf("%s%s %s", strings.Repeat("  ", r.Depth), marker, truncate(r.Item.Text, 60))
		suffix := details(r.Item)
		if r.Item.ID == movedID && change != hierarchy.ChangeNone {
			suffix += " (" + string(change) + ")"
		}
		fmt.Fprintf(w, "%s  %s%s\n", idStyle.Sprint(shortID(r.Item.ID)), style.Sprint(line), suffix)
	}
}

func hasVisibleChild(rows []hierarchy.Row, id string) bool {
	for _, r := range rows {
		if r.Item.ParentID() == id && r.IsVisible {
			return true
		}
	}
	return false
}

func details(it domain.PlanItem) string {
	var parts []string
	if it.Cost > 0 {
		parts = append(parts, fmt.Sprintf("$%.2f", it.Cost))
	}
	if it.PlanningDays > 0 {
		parts = append(parts, fmt.Sprintf("%dd", it.PlanningDays))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, ", ") + "]"
}

// expandedIDs resolves id prefixes to an expansion set; no prefixes
// expands every parent
func expandedIDs(items []domain.PlanItem, prefixes []string) (map[string]bool, error) {
	if len(prefixes) == 0 {
		set := map[string]bool{}
		for _, it := range items {
			if !it.IsRoot() {
				set[it.ParentID()] = true
			}
		}
		return set, nil
	}

	ids := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		id, err := resolveItem(items, p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return hierarchy.ExpandedSet(ids), nil
}

// resolveItem finds the single item whose id starts with prefix
func resolveItem(items []domain.PlanItem, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("empty item id")
	}
	var found []string
	for _, it := range items {
		if it.ID == prefix {
			return it.ID, nil
		}
		if strings.HasPrefix(it.ID, prefix) {
			found = append(found, it.ID)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("item not found: %s", prefix)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("item id %s is ambiguous (%d matches)", prefix, len(found))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, max int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
