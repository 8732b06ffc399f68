package backends

import "testing"

func TestMatchesAll(t *testing.T) {
	row := map[string]any{
		"subject":    "2102033",
		"year":       float64(1),
		"teacher_id": "d810df06-78c5-441c-8eaf-90e6e505adad",
		"settings":   map[string]any{"lock_class": false},
	}

	tests := []struct {
		name  string
		match map[string]any
		want  bool
	}{
		{name: "empty match", match: map[string]any{}, want: true},
		{name: "single column", match: map[string]any{"subject": "2102033"}, want: true},
		{name: "int against decoded float", match: map[string]any{"year": 1}, want: true},
		{name: "nested value", match: map[string]any{"settings": map[string]any{"lock_class": false}}, want: true},
		{name: "different value", match: map[string]any{"subject": "2102034"}, want: false},
		{name: "missing column", match: map[string]any{"name": "x"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesAll(row, tt.match); got != tt.want {
				t.Errorf("MatchesAll() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"abc", "abc"},
		{true, "true"},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := FilterValue(tt.in); got != tt.want {
			t.Errorf("FilterValue(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
