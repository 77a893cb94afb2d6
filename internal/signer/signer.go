// Package signer implements C5: the orchestrator that turns a
// chain-tagged Transaction into one or more completed signatures by
// driving internal/mpc's keysign state machine, in fast or relay mode
// (spec §4.5).
package signer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/vultisig-sdk-core/internal/chainkind"
	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/mpc"
	"github.com/vultisig/vultisig-sdk-core/internal/pwcache"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// Phase is a coarse-grained, monotonically advancing signing phase
// reported to callers (spec §4.5's "preparing -> coordinating ->
// signing -> complete" progress sequence).
type Phase string

const (
	PhasePreparing    Phase = "preparing"
	PhaseCoordinating Phase = "coordinating"
	PhaseSigning      Phase = "signing"
	PhaseComplete     Phase = "complete"
)

// Progress is one progress event delivered to an OnProgress callback.
// Percent follows spec §4.5's monotonic sequence:
// preparing(0) -> coordinating(30-60) -> signing(70) -> complete(100).
type Progress struct {
	Phase             Phase
	Percent           int
	Mode              mpc.Mode
	ParticipantCount  int
	ParticipantsReady int
	Message           string
}

// Signature is the final per-hash result, assembled from one or more
// mpc.KeysignResult values (spec §4.5's "UTXO multi-signature" case,
// where signature == signatures[0].der).
type Signature struct {
	DER        string
	R          string
	S          string
	RecoveryID *byte
}

// Request parameterizes one Sign call.
type Request struct {
	Vault         *vaultcore.Vault
	Chain         chainkind.Chain
	Transaction   chainkind.Transaction
	Mode          mpc.Mode
	RelayURL      string
	Engine        mpc.Engine
	Role          mpc.Role
	VaultPassword string

	// DerivationPath is the chain's BIP-32/44-style path, possibly
	// single-quoted (e.g. "m/44'/60'/0'/0/0"); its single quotes are
	// removed before it is passed to the MPC layer as ChainPath (spec §4.5.1).
	DerivationPath string

	// Fast mode only.
	FastVault *mpc.FastVaultClient

	OnProgress func(Progress)
}

// Result is the outcome of a Sign call: one Signature per pre-signing
// hash, plus the combined "primary" signature (spec §4.5: "signature
// == signatures[0].der").
type Result struct {
	Signature  Signature
	Signatures []Signature
}

// Sign runs the full signer flow from spec §4.5, steps 1-5:
// resolve algorithm, hash the transaction, drive keysign for every
// hash, and assemble the result.
func Sign(ctx context.Context, pw *pwcache.Cache, req Request) (*Result, error) {
	emit := func(p Progress) {
		if req.OnProgress != nil {
			req.OnProgress(p)
		}
	}
	log := logrus.WithField("component", "signer").WithField("chain", req.Chain)

	emit(Progress{Phase: PhasePreparing, Percent: 0, Mode: req.Mode, Message: "resolving signing algorithm"})
	alg, err := chainkind.Algorithm(req.Chain)
	if err != nil {
		return nil, err
	}
	if req.Vault == nil {
		return nil, errs.New(errs.InvalidInput, "sign requires a vault")
	}
	if !req.Vault.HasKeyShare(alg) {
		return nil, errs.New(errs.KeyShareMissing, fmt.Sprintf("vault has no %s key share for %s", alg, req.Chain))
	}

	password, ok := pw.Get(req.Vault.ID)
	if !ok {
		if req.VaultPassword == "" {
			return nil, errs.New(errs.PasswordRequired, "vault password required to sign")
		}
		password = req.VaultPassword
		pw.Set(req.Vault.ID, password)
	} else {
		pw.Touch(req.Vault.ID)
	}

	hashes, err := chainkind.Hash(req.Transaction)
	if err != nil {
		return nil, err
	}
	log.WithField("hash_count", len(hashes)).Debug("computed pre-signing hashes")

	emit(Progress{Phase: PhaseCoordinating, Percent: 30, Mode: req.Mode, Message: "joining signing session"})
	coordinator := mpc.New(relay.New(req.RelayURL))

	// mpc.Coordinator.Keysign reports exactly four progress events, in
	// order: waiting for peers, peers joined, signing round started,
	// signing round complete. Map them onto the spec §4.5/§8 E3 percent
	// sequence (together with the preparing/coordinating/complete events
	// above): [0, 30, 50, 60, 70, 90, 100].
	signingPercents := []int{50, 60, 70, 90}
	signingStep := 0
	onSigningProgress := func(participantCount, participantsReady int, message string) {
		percent := signingPercents[len(signingPercents)-1]
		if signingStep < len(signingPercents) {
			percent = signingPercents[signingStep]
		}
		signingStep++
		phase := PhaseSigning
		if percent < 70 {
			phase = PhaseCoordinating
		}
		emit(Progress{
			Phase:             phase,
			Percent:           percent,
			Mode:              req.Mode,
			ParticipantCount:  participantCount,
			ParticipantsReady: participantsReady,
			Message:           message,
		})
	}

	results, err := coordinator.Keysign(ctx, mpc.KeysignRequest{
		Mode:          req.Mode,
		Algorithm:     alg,
		KeyShare:      req.Vault.KeyShares[alg],
		ChainPath:     strings.ReplaceAll(req.DerivationPath, "'", ""),
		Role:          req.Role,
		RelayURL:      req.RelayURL,
		Engine:        req.Engine,
		MessageHashes: hashes,
		FastVault:     req.FastVault,
		PublicKey:     keyFor(req.Vault, alg),
		VaultPassword: password,
	}, onSigningProgress)
	if err != nil {
		return nil, err
	}

	signatures := make([]Signature, len(results))
	for i, r := range results {
		signatures[i] = Signature{DER: r.DERSignature, R: r.R, S: r.S, RecoveryID: r.RecoveryID}
	}
	if len(signatures) == 0 {
		return nil, errs.New(errs.KeysignFailed, "keysign produced no signatures")
	}

	emit(Progress{
		Phase:             PhaseComplete,
		Percent:           100,
		Mode:              req.Mode,
		ParticipantCount:  len(results),
		ParticipantsReady: len(results),
		Message:           "signing complete",
	})
	return &Result{Signature: signatures[0], Signatures: signatures}, nil
}

func keyFor(v *vaultcore.Vault, alg vaultcore.Algorithm) string {
	if alg == vaultcore.EdDSA {
		return v.PublicKeys.EdDSA
	}
	return v.PublicKeys.ECDSA
}
