package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naragtive/naragtive/internal/store"
)

func TestFilterMatches(t *testing.T) {
	meta := store.Metadata{
		SceneID:    "s1",
		Date:       "2024-03-15",
		Location:   "Bridge",
		POV:        "Admiral",
		Characters: []string{"Admiral", "Navigator"},
	}

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil filter matches", nil, true},
		{"empty filter matches", &Filter{}, true},
		{"location case-insensitive", &Filter{Location: "bridge"}, true},
		{"location mismatch", &Filter{Location: "Engine Room"}, false},
		{"pov match", &Filter{POV: "admiral"}, true},
		{"character present", &Filter{Character: "navigator"}, true},
		{"character absent", &Filter{Character: "Engineer"}, false},
		{"date in range", &Filter{DateFrom: "2024-03-01", DateTo: "2024-03-31"}, true},
		{"date before range", &Filter{DateFrom: "2024-04-01"}, false},
		{"date after range", &Filter{DateTo: "2024-02-28"}, false},
		{"inclusive bounds", &Filter{DateFrom: "2024-03-15", DateTo: "2024-03-15"}, true},
		{"combined constraints", &Filter{Location: "Bridge", Character: "Navigator", DateFrom: "2024-01-01"}, true},
		{"one failing constraint fails all", &Filter{Location: "Bridge", Character: "Engineer"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(&meta))
		})
	}
}
