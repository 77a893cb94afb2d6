package mpc

import (
	"context"
	"encoding/hex"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// KeysignState enumerates the keysign state machine from spec §4.4.3.
type KeysignState string

const (
	KeysignInit         KeysignState = "INIT"
	KeysignJoin         KeysignState = "JOIN"
	KeysignCallFastSign KeysignState = "CALL_FAST_SIGN"
	KeysignWaitPeers    KeysignState = "WAIT_PEERS"
	KeysignStart        KeysignState = "START"
	KeysignRound        KeysignState = "SIGN_ROUND"
	KeysignDone         KeysignState = "DONE"
	KeysignAbort        KeysignState = "ABORT"
)

// Mode selects how the keysign state machine recruits its peer (spec §4.5).
type Mode string

const (
	ModeFast  Mode = "fast"
	ModeRelay Mode = "relay"
)

// KeysignRequest parameterizes one keysign run.
type KeysignRequest struct {
	Mode          Mode
	Algorithm     vaultcore.Algorithm
	KeyShare      []byte
	ChainPath     string
	Role          Role
	RelayURL      string
	Engine        Engine
	MessageHashes []string // pre-signing hashes, one per spec's UTXO input or a single entry otherwise

	// Fast mode only.
	FastVault     *FastVaultClient
	PublicKey     string
	VaultPassword string
}

// ProgressFunc reports coordinator progress; see spec §4.5's monotonic
// preparing/coordinating/signing/complete sequence. Keysign calls it four
// times: waiting for peers, peers joined, signing round started, signing
// round complete; internal/signer maps these onto its coordinating and
// signing phases and adds preparing/complete around them.
type ProgressFunc func(participantCount, participantsReady int, message string)

// Keysign runs the INIT..DONE state machine and returns one result per
// message hash, in the same order as req.MessageHashes.
func (c *Coordinator) Keysign(ctx context.Context, req KeysignRequest, onProgress ProgressFunc) ([]KeysignResult, error) {
	state := KeysignInit
	log := c.logger.WithField("op", "keysign").WithField("mode", req.Mode)

	withChainCode := false
	params, err := NewSessionParams(req.Role, withChainCode)
	if err != nil {
		return nil, err
	}
	log = log.WithField("session_id", params.SessionID)

	abort := func(cause error, kind errs.Kind) ([]KeysignResult, error) {
		state = KeysignAbort
		log.WithField("state", state).WithError(cause).Warn("keysign aborted")
		_ = c.relay.CloseSession(context.Background(), params.SessionID)
		if ctx.Err() != nil {
			kind = errs.Cancelled
		}
		return nil, errs.Wrap(kind, "keysign failed", cause)
	}

	state = KeysignJoin
	if err := c.relay.Join(ctx, params.SessionID, params.LocalPartyID); err != nil {
		return abort(err, errs.KeysignFailed)
	}

	expectedPeers := 1
	if req.Mode == ModeFast {
		state = KeysignCallFastSign
		if req.FastVault == nil {
			return abort(errs.New(errs.InvalidInput, "fast mode requires a FastVaultClient"), errs.InvalidInput)
		}
		if err := req.FastVault.Sign(ctx, FastSignRequest{
			PublicKey:        req.PublicKey,
			Messages:         req.MessageHashes,
			Session:          params.SessionID,
			HexEncryptionKey: params.HexEncryptionKey,
			DerivePath:       req.ChainPath,
			IsECDSA:          req.Algorithm == vaultcore.ECDSA,
			VaultPassword:    req.VaultPassword,
		}); err != nil {
			return abort(err, errs.ServerRefused)
		}
	}

	state = KeysignWaitPeers
	if onProgress != nil {
		onProgress(1, 0, "waiting for signing peers to join")
	}
	devices, err := c.waitPeersForKeysign(ctx, params.SessionID, params.LocalPartyID, expectedPeers)
	if err != nil {
		_ = c.relay.CloseSession(context.Background(), params.SessionID)
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.Cancelled, "keysign cancelled during WAIT_PEERS", ctx.Err())
		}
		return nil, errs.Wrap(errs.PeerTimeout, "no signing peer joined", err)
	}
	if onProgress != nil {
		onProgress(len(devices), len(devices), "signing peers joined")
	}

	state = KeysignStart
	if err := c.relay.Start(ctx, params.SessionID, devices); err != nil {
		return abort(err, errs.KeysignFailed)
	}

	state = KeysignRound
	if onProgress != nil {
		onProgress(len(devices), 0, "signing transaction")
	}
	results := make([]KeysignResult, len(req.MessageHashes))
	for i, hash := range req.MessageHashes {
		res, err := req.Engine.Keysign(ctx, KeysignOp{
			Algorithm:    req.Algorithm,
			KeyShare:     req.KeyShare,
			Message:      mustHexDecode(hash),
			ChainPath:    req.ChainPath,
			LocalPartyID: params.LocalPartyID,
			Peers:        devices,
			RelayURL:     req.RelayURL,
			SessionID:    params.SessionID,
			EncKey:       params.HexEncryptionKey,
			IsInitiator:  true,
		})
		if err != nil {
			return abort(err, errs.KeysignFailed)
		}
		results[i] = res
	}
	if onProgress != nil {
		onProgress(len(devices), len(devices), "signing round complete")
	}

	state = KeysignDone
	log.WithField("state", state).Info("keysign complete")
	_ = c.relay.CloseSession(ctx, params.SessionID)
	return results, nil
}

func (c *Coordinator) waitPeersForKeysign(ctx context.Context, sessionID, localPartyID string, expectedPeers int) ([]string, error) {
	var devices []string
	err := relay.Poll(ctx, waitPeersInterval, waitPeersDeadline, func() (bool, error) {
		participants, err := c.relay.Participants(ctx, sessionID)
		if err != nil {
			return false, nil
		}
		devices = mergeLocalFirst(localPartyID, participants)
		return len(devices) >= 1+expectedPeers, nil
	})
	return devices, err
}

func mustHexDecode(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return []byte(s)
	}
	return b
}
