package chat

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "who is the chairman of the company?", "en"},
		{"arabic", "من هو رئيس مجلس الإدارة؟", "ar"},
		{"arabic with latin acronym", "من هو CFO الشركة؟", "ar"},
		{"mostly english with one arabic word", "what does شكرا mean in our documents and policies", "en"},
		{"digits only", "12345", "en"},
		{"empty", "", "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
