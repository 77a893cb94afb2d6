package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL)
	c.policy = Policy{Base: 0, Cap: 0, MaxRetries: 2}
	return c
}

func TestJoinAndParticipants(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/session-1":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/session-1":
			w.Write([]byte(`["party-a","party-b"]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	ctx := context.Background()
	if err := c.Join(ctx, "session-1", "party-a"); err != nil {
		t.Fatalf("join: %v", err)
	}
	participants, err := c.Participants(ctx, "session-1")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %v", participants)
	}
}

func TestParticipantsTolerates404(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	participants, err := c.Participants(context.Background(), "unknown-session")
	if err != nil {
		t.Fatalf("expected no error for unknown session, got %v", err)
	}
	if len(participants) != 0 {
		t.Fatalf("expected empty slice, got %v", participants)
	}
}

func TestGetCompleteChecksAllPeers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["party-a"]`))
	})

	done, err := c.GetComplete(context.Background(), "session-1", []string{"party-a", "party-b"})
	if err != nil {
		t.Fatalf("get complete: %v", err)
	}
	if done {
		t.Fatal("expected not all peers complete")
	}

	done, err = c.GetComplete(context.Background(), "session-1", []string{"party-a"})
	if err != nil {
		t.Fatalf("get complete: %v", err)
	}
	if !done {
		t.Fatal("expected complete when peers subset matches")
	}
}

func TestDoRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestDoFailsImmediatelyOn4xx(t *testing.T) {
	var attempts int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	})

	err := c.Ping(context.Background())
	if errs.KindOf(err) != errs.ServerRefused {
		t.Fatalf("expected ServerRefused, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt for 4xx, got %d", attempts)
	}
}

func TestPostMessageAndMessages(t *testing.T) {
	var stored []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			buf := make([]byte, r.ContentLength)
			r.Body.Read(buf)
			stored = buf
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet:
			w.Write([]byte(`[{"session_id":"s1","from":"a","to":"b","body":"hi","hash":"h","sequence_no":0}]`))
		}
	})

	ctx := context.Background()
	if err := c.PostMessage(ctx, "s1", Message{SessionID: "s1", From: "a", To: "b", Body: "hi"}); err != nil {
		t.Fatalf("post message: %v", err)
	}
	if len(stored) == 0 {
		t.Fatal("expected server to receive a body")
	}

	msgs, err := c.Messages(ctx, "s1", "b")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "hi" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestHashBodyIsDeterministic(t *testing.T) {
	a := HashBody("payload")
	b := HashBody("payload")
	if a != b {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, b)
	}
	if a == HashBody("different") {
		t.Fatal("expected different payloads to hash differently")
	}
}
