package security

import "testing"

func TestSanitize_PlainTextPassesThrough(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize("Fix leaking faucet in unit 302")
	if got != "Fix leaking faucet in unit 302" {
		t.Errorf("Sanitize = %q, want input unchanged", got)
	}
}

func TestSanitize_StripsScriptTags(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<script>alert("xss")</script>broken window`)
	if got != "broken window" {
		t.Errorf("Sanitize = %q, want %q", got, "broken window")
	}
}

func TestSanitize_StripsAllMarkup(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<b>urgent</b> <a href="https://evil.example">repair</a>`)
	if got != "urgent repair" {
		t.Errorf("Sanitize = %q, want %q", got, "urgent repair")
	}
}

func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	once := s.Sanitize(`<img src=x onerror=alert(1)>inspect boiler`)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize not idempotent: %q vs %q", once, twice)
	}
}
