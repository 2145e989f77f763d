package security

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
}

func TestCheckAgainstDummyAlwaysFails(t *testing.T) {
	for _, pw := range []string{"", "taskdeck-dummy-password", "anything"} {
		if err := CheckAgainstDummy(pw); !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			t.Fatalf("CheckAgainstDummy(%q) = %v", pw, err)
		}
	}
}
