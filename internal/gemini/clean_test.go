package gemini

import "testing"

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "fenced with language tag",
			input: "```json\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "fenced without language tag",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "no fences",
			input: `{"a":1}`,
			want:  `{"a":1}`,
		},
		{
			name:  "surrounding whitespace only",
			input: "  \n{\"a\":1}\n\n",
			want:  `{"a":1}`,
		},
		{
			name:  "fence and extra whitespace",
			input: "\n```json\n  {\"domain\": \"healthcare\"}  \n```\n",
			want:  `{"domain": "healthcare"}`,
		},
		{
			name:  "empty string",
			input: "",
			want:  "",
		},
		{
			name:  "backticks inside body untouched",
			input: "{\"note\": \"use ``` for code\"}",
			want:  "{\"note\": \"use ``` for code\"}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanJSON(tt.input)
			if got != tt.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
			// Stripping must be idempotent.
			if again := CleanJSON(got); again != got {
				t.Errorf("CleanJSON not idempotent: %q -> %q", got, again)
			}
		})
	}
}
