package scorer

import (
	"reflect"
	"sort"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        []string
	}{
		{
			name:  "python task",
			title: "Fix the pytest suite",
			want:  []string{"python", "test"},
		},
		{
			name:        "refactor with no other signal",
			title:       "Refactor the billing module",
			description: "simplify duplicated logic",
			want:        []string{"refactor"},
		},
		{
			name:  "falls back to general",
			title: "Update the mascot artwork",
			want:  []string{CategoryGeneral},
		},
		{
			name:        "multiple categories attach",
			title:       "Write API docs",
			description: "document the REST endpoint",
			want:        []string{"api", "docs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.title, tt.description)
			sort.Strings(got)
			want := append([]string{}, tt.want...)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Classify(%q, %q) = %v, want %v", tt.title, tt.description, got, want)
			}
		})
	}
}
