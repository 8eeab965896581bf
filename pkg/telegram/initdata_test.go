package telegram

import (
	"errors"
	"net/url"
	"testing"
	"time"
)

const botToken = "123456:test-token"

func TestVerifyRoundTrip(t *testing.T) {
	v := NewVerifier(botToken, time.Hour)
	data, err := Sign(botToken, WebAppUser{ID: 42, FirstName: "Ann", Username: "ann"}, time.Now())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	user, err := v.Verify(data)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.Identifier() != "42" || user.DisplayName() != "ann" {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier(botToken, time.Hour)
	good, _ := Sign(botToken, WebAppUser{ID: 42, FirstName: "Ann"}, time.Now())
	otherBot, _ := Sign("999:other", WebAppUser{ID: 42, FirstName: "Ann"}, time.Now())
	stale, _ := Sign(botToken, WebAppUser{ID: 42, FirstName: "Ann"}, time.Now().Add(-2*time.Hour))

	tampered, _ := url.ParseQuery(good)
	tampered.Set("user", `{"id":1,"first_name":"Admin"}`)

	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty", "", ErrInvalidInitData},
		{"other bot", otherBot, ErrInvalidInitData},
		{"tampered user", tampered.Encode(), ErrInvalidInitData},
		{"expired", stale, ErrExpiredInitData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyWithoutToken(t *testing.T) {
	data, _ := Sign(botToken, WebAppUser{ID: 1, FirstName: "x"}, time.Now())
	if _, err := NewVerifier("", time.Hour).Verify(data); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestDisplayNameFallsBackToName(t *testing.T) {
	u := WebAppUser{ID: 7, FirstName: "Ann", LastName: "Lee"}
	if got := u.DisplayName(); got != "Ann Lee" {
		t.Fatalf("DisplayName=%q", got)
	}
}
