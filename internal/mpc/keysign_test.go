package mpc

import (
	"context"
	"testing"
	"time"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
)

func TestKeysignTimesOutWithNoPeer(t *testing.T) {
	srv := newFakeRelayServer()
	defer srv.Close()

	coord := New(relay.New(srv.URL))
	engine := &fakeEngine{}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := coord.Keysign(ctx, KeysignRequest{
		Mode:          ModeRelay,
		Algorithm:     "ecdsa",
		KeyShare:      []byte("share"),
		Role:          RoleClient,
		RelayURL:      srv.URL,
		Engine:        engine,
		MessageHashes: []string{"aa"},
	}, nil)

	if errs.KindOf(err) != errs.PeerTimeout && errs.KindOf(err) != errs.Cancelled {
		t.Fatalf("expected a timeout/cancellation error, got %v", err)
	}
}

func TestKeysignFastModeRequiresFastVaultClient(t *testing.T) {
	srv := newFakeRelayServer()
	defer srv.Close()

	coord := New(relay.New(srv.URL))
	engine := &fakeEngine{}

	_, err := coord.Keysign(context.Background(), KeysignRequest{
		Mode:          ModeFast,
		Algorithm:     "ecdsa",
		KeyShare:      []byte("share"),
		Role:          RoleClient,
		RelayURL:      srv.URL,
		Engine:        engine,
		MessageHashes: []string{"aa"},
	}, nil)

	if errs.KindOf(err) != errs.InvalidInput {
		t.Fatalf("expected InvalidInput for missing FastVaultClient, got %v", err)
	}
}

func TestMustHexDecodeFallsBackToRawBytes(t *testing.T) {
	got := mustHexDecode("not-hex!!")
	if string(got) != "not-hex!!" {
		t.Fatalf("expected fallback to raw bytes, got %q", got)
	}

	got = mustHexDecode("deadbeef")
	if len(got) != 4 {
		t.Fatalf("expected 4 decoded bytes, got %d", len(got))
	}
}
