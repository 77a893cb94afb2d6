package errs

import (
	"errors"
	"testing"
)

func TestErrorImplementsStdError(t *testing.T) {
	e := New(InvalidPassword, "wrong password")
	if e.Error() != "InvalidPassword: wrong password" {
		t.Fatalf("unexpected message: %s", e.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	e := Wrap(RelayTransport, "request failed", cause)

	if !errors.Is(e, cause) {
		t.Fatalf("expected Unwrap chain to reach cause")
	}
	if e.Cause != cause {
		t.Fatalf("expected Cause field to hold original error")
	}
}

func TestIsAndKindOf(t *testing.T) {
	e := New(SessionExpired, "session gone")
	var wrapped error = e

	if !Is(wrapped, SessionExpired) {
		t.Fatalf("expected Is to match SessionExpired")
	}
	if Is(wrapped, PeerTimeout) {
		t.Fatalf("did not expect Is to match PeerTimeout")
	}
	if KindOf(wrapped) != SessionExpired {
		t.Fatalf("expected KindOf to return SessionExpired")
	}
	if KindOf(errors.New("plain")) != Internal {
		t.Fatalf("expected KindOf of a non-*Error to default to Internal")
	}
}
