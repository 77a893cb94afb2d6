package mpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// fakeRelayServer is a minimal in-memory relay backing an httptest server,
// enough to drive the keygen/keysign state machines end to end.
type fakeRelayServer struct {
	mu           sync.Mutex
	participants map[string][]string
	complete     map[string][]string
}

func newFakeRelayServer() *httptest.Server {
	s := &fakeRelayServer{participants: map[string][]string{}, complete: map[string][]string{}}
	return httptest.NewServer(http.HandlerFunc(s.handle))
}

func (s *fakeRelayServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && len(path) > 1 && path[1:] != "" && !contains(path, "/start/") && !contains(path, "/complete/") && !contains(path, "/message/"):
		sessionID := path[1:]
		var parties []string
		_ = json.NewDecoder(r.Body).Decode(&parties)
		s.participants[sessionID] = append(s.participants[sessionID], parties...)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && len(path) > 1 && !contains(path, "/start/") && !contains(path, "/complete/"):
		sessionID := path[1:]
		_ = json.NewEncoder(w).Encode(s.participants[sessionID])
	case r.Method == http.MethodPost && contains(path, "/start/"):
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPost && contains(path, "/complete/"):
		sessionID := path[len("/complete/"):]
		var parties []string
		_ = json.NewDecoder(r.Body).Decode(&parties)
		s.complete[sessionID] = append(s.complete[sessionID], parties...)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && contains(path, "/complete/"):
		sessionID := path[len("/complete/"):]
		_ = json.NewEncoder(w).Encode(s.complete[sessionID])
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// fakeEngine is a scripted Engine that returns canned keygen and keysign
// results without contacting the relay.
type fakeEngine struct {
	onStartKeygen func(op KeygenOp)
}

func (f *fakeEngine) StartKeygen(ctx context.Context, op KeygenOp) (KeygenResult, error) {
	if f.onStartKeygen != nil {
		f.onStartKeygen(op)
	}
	return KeygenResult{
		PublicKey: "pub-" + string(op.Algorithm),
		ChainCode: "chaincode",
		KeyShare:  []byte("share-" + string(op.Algorithm)),
	}, nil
}

func (f *fakeEngine) Keysign(ctx context.Context, op KeysignOp) (KeysignResult, error) {
	return KeysignResult{DERSignature: "der-sig", R: "r", S: "s"}, nil
}

func (f *fakeEngine) SetupMessage(ctx context.Context) ([]byte, error) {
	return []byte("setup-blob"), nil
}

func TestKeygenTimesOutWithoutSecondPeer(t *testing.T) {
	srv := newFakeRelayServer()
	defer srv.Close()

	relayClient := relay.New(srv.URL)
	coord := New(relayClient)

	// No second party ever joins: the generated session ID is not known
	// ahead of time in this simple fake, so this goroutine joins nobody and
	// WAIT_PEERS only ever sees the initiator itself.
	go func() {
		time.Sleep(10 * time.Millisecond)
	}()

	engine := &fakeEngine{}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := coord.Keygen(ctx, KeygenRequest{
		VaultName: "test-vault",
		Role:      RoleClient,
		RelayURL:  srv.URL,
		Engine:    engine,
	})
	if errs.KindOf(err) != errs.PeerTimeout && errs.KindOf(err) != errs.Cancelled {
		t.Fatalf("expected keygen to time out waiting for a second peer, got %v", err)
	}
}

func TestMergeLocalFirstDedupes(t *testing.T) {
	got := mergeLocalFirst("local", []string{"local", "peer-a", "peer-a", "peer-b"})
	want := []string{"local", "peer-a", "peer-b"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestVaultAssembledFromKeygenResults(t *testing.T) {
	// Exercises the final vault-building logic directly with pre-baked
	// results, without waiting on the full relay round trip.
	ecdsaResult := KeygenResult{PublicKey: "ecdsa-pub", ChainCode: "cc", KeyShare: []byte("es")}
	eddsaResult := KeygenResult{PublicKey: "eddsa-pub", ChainCode: "cc", KeyShare: []byte("ed")}

	v := &vaultcore.Vault{
		Name:         "test",
		PublicKeys:   vaultcore.PublicKeys{ECDSA: ecdsaResult.PublicKey, EdDSA: eddsaResult.PublicKey},
		HexChainCode: ecdsaResult.ChainCode,
		Signers:      []string{"client-aaaa", "server-bbbb"},
		LocalPartyID: "client-aaaa",
		KeyShares: map[vaultcore.Algorithm][]byte{
			vaultcore.ECDSA: ecdsaResult.KeyShare,
			vaultcore.EdDSA: eddsaResult.KeyShare,
		},
		LibType: vaultcore.LibDKLS,
	}
	v.ID = v.PublicKeys.ECDSA

	if err := vaultcore.Validate(v); err != nil {
		t.Fatalf("expected assembled vault to validate, got %v", err)
	}
}
