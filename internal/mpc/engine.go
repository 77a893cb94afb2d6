// Package mpc implements C4: the keygen and keysign state machines that
// drive a DKLS/Schnorr-capable cryptographic module through a relay
// session (spec §4.4). The cryptographic module itself is out of scope
// (spec §1) and is consumed only through the Engine interface below.
package mpc

import (
	"context"

	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// KeygenOp describes one StartKeygen invocation (spec §6.4).
type KeygenOp struct {
	Algorithm    vaultcore.Algorithm
	Committee    []string
	OldCommittee []string
	IsInitiator  bool
	RelayURL     string
	SessionID    string
	LocalPartyID string
	EncKey       string // hex-encoded 32-byte symmetric key
	SetupMessage []byte // nil on the initiator's first (ECDSA) run
}

// KeygenResult is what a successful StartKeygen returns.
type KeygenResult struct {
	PublicKey string
	ChainCode string
	KeyShare  []byte
}

// KeysignOp describes one Keysign invocation (spec §6.4).
type KeysignOp struct {
	Algorithm    vaultcore.Algorithm
	KeyShare     []byte
	Message      []byte // the pre-signing hash to sign
	ChainPath    string
	LocalPartyID string
	Peers        []string
	RelayURL     string
	SessionID    string
	EncKey       string
	IsInitiator  bool
}

// KeysignResult is what a successful Keysign returns.
type KeysignResult struct {
	R            string
	S            string
	DERSignature string
	RecoveryID   *byte
}

// Engine is the cryptographic module contract from spec §6.4: an
// external collaborator (WASM or native DKLS/Schnorr implementation) that
// this package drives but never implements. It is not reentrant per
// session: callers must obtain one Engine value per operation where the
// underlying library demands it (spec §5, "Shared resources").
type Engine interface {
	StartKeygen(ctx context.Context, op KeygenOp) (KeygenResult, error)
	Keysign(ctx context.Context, op KeysignOp) (KeysignResult, error)
	// SetupMessage returns the setup blob produced by the most recent
	// StartKeygen call on this Engine instance, for reuse by the
	// follow-on EdDSA run (spec §4.4.2 "Ordering guarantees").
	SetupMessage(ctx context.Context) ([]byte, error)
}
