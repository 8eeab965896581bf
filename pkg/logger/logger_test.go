package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"token", "abc", "identifier", "u1", "JWT_SECRET", "s"})
	if out[1] != "[REDACTED]" {
		t.Fatalf("token not redacted: %v", out)
	}
	if out[3] != "u1" {
		t.Fatalf("identifier should pass through: %v", out)
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("secret not redacted: %v", out)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"a", 1, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected: %v", out)
	}
}

func TestNewDevelopment(t *testing.T) {
	l, err := New("development")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.With("component", "test").Debug("hello", "k", "v")
}
