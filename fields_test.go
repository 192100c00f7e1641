package publipostage

import "testing"

func TestResolveFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		row      Row
		expected string
	}{
		{
			name:     "simple substitution",
			text:     "Hello {{name}}",
			row:      Row{"name": "Alice"},
			expected: "Hello Alice",
		},
		{
			name:     "unresolved placeholder left verbatim",
			text:     "Hello {{name}}",
			row:      Row{},
			expected: "Hello {{name}}",
		},
		{
			name:     "missing key left verbatim next to resolved key",
			text:     "{{greeting}} {{name}}",
			row:      Row{"name": "Alice"},
			expected: "{{greeting}} Alice",
		},
		{
			name:     "empty template",
			text:     "",
			row:      Row{"name": "Alice"},
			expected: "",
		},
		{
			name:     "nil value substitutes to empty string",
			text:     "Hello {{name}}!",
			row:      Row{"name": nil},
			expected: "Hello !",
		},
		{
			name:     "duplicate occurrences all resolve identically",
			text:     "{{name}} and {{name}} and {{name}}",
			row:      Row{"name": "Bob"},
			expected: "Bob and Bob and Bob",
		},
		{
			name:     "value containing placeholder text is not resubstituted",
			text:     "{{a}} {{b}}",
			row:      Row{"a": "{{b}}", "b": "two"},
			expected: "{{b}} two",
		},
		{
			name:     "value shaped like its own token stays inert",
			text:     "{{a}}",
			row:      Row{"a": "{{a}}"},
			expected: "{{a}}",
		},
		{
			name:     "whitespace inside braces tolerated",
			text:     "Hello {{ name }}",
			row:      Row{"name": "Alice"},
			expected: "Hello Alice",
		},
		{
			name:     "numeric value",
			text:     "Total: {{amount}}",
			row:      Row{"amount": float64(42.5)},
			expected: "Total: 42.5",
		},
		{
			name:     "integer-valued float has no trailing zeros",
			text:     "{{n}}",
			row:      Row{"n": float64(7)},
			expected: "7",
		},
		{
			name:     "boolean value",
			text:     "{{flag}}",
			row:      Row{"flag": true},
			expected: "true",
		},
		{
			name:     "timestamp in seconds rendered as date",
			text:     "{{date}}",
			row:      Row{"date": float64(1700000000)}, // 2023-11-14 UTC
			expected: "14/11/2023",
		},
		{
			name:     "timestamp in milliseconds rendered as date",
			text:     "{{date}}",
			row:      Row{"date": float64(1700000000000)},
			expected: "14/11/2023",
		},
		{
			name:     "small number not treated as timestamp",
			text:     "{{n}}",
			row:      Row{"n": float64(12345)},
			expected: "12345",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ResolveFields(tt.text, tt.row)
			if got != tt.expected {
				t.Errorf("ResolveFields(%q) = %q, want %q", tt.text, got, tt.expected)
			}
		})
	}
}

func TestResolveFieldsFixedPoint(t *testing.T) {
	t.Parallel()

	// Placeholder-free text is a fixed point of resolution.
	row := Row{"name": "Alice", "city": "Lyon"}
	text := ResolveFields("Hello {{name}} from {{city}}", row)

	if again := ResolveFields(text, row); again != text {
		t.Errorf("ResolveFields not idempotent on resolved text: %q != %q", again, text)
	}
}

func TestResolveFieldsEmptyRow(t *testing.T) {
	t.Parallel()

	text := "Hello {{name}}, welcome"
	if got := ResolveFields(text, nil); got != text {
		t.Errorf("ResolveFields with nil row = %q, want unchanged %q", got, text)
	}
}
