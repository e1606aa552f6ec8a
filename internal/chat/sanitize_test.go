package chat

import "testing"

func TestSanitizeResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"think block removed",
			"<think>reasoning\nacross lines</think>The answer is here.",
			"The answer is here.",
		},
		{
			"markdown markers stripped",
			"## Heading\n**bold** and _italic_ text",
			"Heading bold and italic text",
		},
		{
			"whitespace collapsed",
			"too   many\n\n  spaces\there",
			"too many spaces here",
		},
		{
			"braces removed",
			"value {placeholder} end",
			"value placeholder end",
		},
		{
			"clean text untouched",
			"Horizon is a holding company.",
			"Horizon is a holding company.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeResponse(tt.in); got != tt.want {
				t.Errorf("sanitizeResponse(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
