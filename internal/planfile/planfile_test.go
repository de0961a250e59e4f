package planfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbaille/plan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kyoto.yaml")
	f := File{
		Experience: domain.Experience{ID: "e1", Name: "Kyoto", CreatedAt: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		Items: []domain.PlanItem{
			{ID: "a", Text: "Temples", PlanningDays: 2},
			{ID: "b", Text: "Kinkaku-ji", Parent: ptr("a"), Cost: 5, URL: "https://example.com"},
		},
	}

	require.NoError(t, Write(path, f))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "Kyoto", got.Experience.Name)
	assert.Equal(t, f.Items, got.Items)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file cleaned up")
}

func TestRead_RejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"version": "version: 7\nitems: []\n",
		"syntax":  "version: [\n",
		"orphan":  "version: 1\nitems:\n  - {id: a, text: A, parent: zz}\n",
		"deep":    "version: 1\nitems:\n  - {id: a, text: A}\n  - {id: b, text: B, parent: a}\n  - {id: c, text: C, parent: b}\n",
		"no text": "version: 1\nitems:\n  - {id: a, text: ''}\n",
		"dup":     "version: 1\nitems:\n  - {id: a, text: A}\n  - {id: a, text: B}\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, err := Read(path)
			assert.Error(t, err)
		})
	}
}
