package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Jazz Trio  ", "Jazz Trio"},
		{"multiple spaces between words", "Jazz    Trio", "Jazz Trio"},
		{"tabs and newlines", "Jazz\t\nTrio", "Jazz Trio"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve special characters", " Café & Band™ ", "Café & Band™"},
		{"hebrew characters", " להקת יוסי ", "להקת יוסי"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Wedding\x00 Party", "Wedding Party"},
		{"  Corporate\x07 Gala ", "Corporate Gala"},
		{"Birthday", "Birthday"},
	}

	for _, tt := range tests {
		if got := SanitizeText(tt.input); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeMultiline(t *testing.T) {
	got := SanitizeMultiline("  First line  \r\n\r\n  second   line \n")
	want := "First line\n\nsecond line"
	if got != want {
		t.Errorf("SanitizeMultiline() = %q, want %q", got, want)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	if got := SanitizeIdentifier(" acc 123\n"); got != "acc123" {
		t.Errorf("SanitizeIdentifier() = %q, want %q", got, "acc123")
	}
}

func TestSanitizeSlice(t *testing.T) {
	got := SanitizeSlice([]string{" a ", "a", "", "b"}, SanitizeText)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("SanitizeSlice() = %v, want [a b]", got)
	}
}

func TestIdempotent(t *testing.T) {
	inputs := []string{"  a  b ", "x\x00y", "line\n  two"}
	for _, in := range inputs {
		once := SanitizeText(in)
		if twice := SanitizeText(once); once != twice {
			t.Errorf("SanitizeText not idempotent for %q: %q vs %q", in, once, twice)
		}
		m := SanitizeMultiline(in)
		if SanitizeMultiline(m) != m {
			t.Errorf("SanitizeMultiline not idempotent for %q", in)
		}
	}
}
