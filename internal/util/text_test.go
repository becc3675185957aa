package util

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "clean", input: "摄像头 focus", want: "摄像头 focus"},
		{name: "nul bytes", input: "cam\x00era", want: "camera"},
		{name: "invalid utf8", input: "cam\xff\xfeera", want: "camera"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
