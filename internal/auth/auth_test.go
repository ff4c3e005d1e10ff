package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	token, err := m.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	user, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user != "alice" {
		t.Fatalf("user = %q, want alice", user)
	}
}

func TestVerifyRejectsTampered(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	token, err := m.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// flip a payload byte, keep the signature
	encoded, mac, _ := strings.Cut(token, ".")
	tampered := encoded[:len(encoded)-1] + "A" + "." + mac
	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Minute).Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewManager("secret-b", time.Minute).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	token, err := m.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := m.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("want ErrExpiredToken, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Minute)
	for _, token := range []string{"", "no-dot", "a.b.c", "!!!.???"} {
		if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): want ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestIssueRejectsEmptyUser(t *testing.T) {
	if _, err := NewManager("test-secret", time.Minute).Issue(""); err == nil {
		t.Fatal("want error for empty user id")
	}
}
