package mpc

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// KeygenState enumerates the keygen state machine from spec §4.4.2,
// reified as an explicit type per the "session coordinator -> explicit
// state machine" redesign note in spec §9.
type KeygenState string

const (
	KeygenInit               KeygenState = "INIT"
	KeygenJoin               KeygenState = "JOIN"
	KeygenWaitPeers          KeygenState = "WAIT_PEERS"
	KeygenStart              KeygenState = "START"
	KeygenECDSA              KeygenState = "KEYGEN_ECDSA"
	KeygenEdDSA              KeygenState = "KEYGEN_EDDSA"
	KeygenSignalComplete     KeygenState = "SIGNAL_COMPLETE"
	KeygenWaitAllComplete    KeygenState = "WAIT_ALL_COMPLETE"
	KeygenDone               KeygenState = "DONE"
	KeygenAbort              KeygenState = "ABORT"
)

const (
	waitPeersInterval = 2 * time.Second
	waitPeersDeadline = 30 * time.Second
	keygenRetries     = 3
)

// KeygenRequest parameterizes one keygen run. The caller acts as the
// initiator: it generates session parameters, uploads the setup message,
// and drives every round.
type KeygenRequest struct {
	VaultName string
	Role      Role
	RelayURL  string
	Engine    Engine
}

// Coordinator drives the keygen and keysign state machines against a
// relay session. One Coordinator is used per operation (spec §5: "no
// shared mutable state between concurrent sessions").
type Coordinator struct {
	relay  *relay.Client
	logger *logrus.Entry
}

// New returns a Coordinator bound to a relay client.
func New(relayClient *relay.Client) *Coordinator {
	return &Coordinator{relay: relayClient, logger: logrus.WithField("component", "mpc")}
}

// Keygen runs the full INIT..DONE state machine for a new vault.
func (c *Coordinator) Keygen(ctx context.Context, req KeygenRequest) (*vaultcore.Vault, error) {
	state := KeygenInit
	log := c.logger.WithField("op", "keygen")

	params, err := NewSessionParams(req.Role, true)
	if err != nil {
		return nil, err
	}
	log = log.WithField("session_id", params.SessionID)

	abort := func(cause error) (*vaultcore.Vault, error) {
		state = KeygenAbort
		log.WithField("state", state).WithError(cause).Warn("keygen aborted")
		// Best-effort close; never overrides the original error.
		_ = c.relay.CloseSession(context.Background(), params.SessionID)
		kind := errs.KeygenFailed
		if ctx.Err() != nil {
			kind = errs.Cancelled
		}
		return nil, errs.Wrap(kind, "keygen failed", cause)
	}

	// The setup message only exists once the ECDSA run has produced it;
	// it is uploaded to the relay's setup-message slot at that point and
	// handed to the EdDSA run (see below).
	state = KeygenJoin
	if err := c.relay.Join(ctx, params.SessionID, params.LocalPartyID); err != nil {
		return abort(err)
	}

	state = KeygenWaitPeers
	devices, err := c.waitPeers(ctx, params.SessionID, params.LocalPartyID)
	if err != nil {
		_ = c.relay.CloseSession(context.Background(), params.SessionID)
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.Cancelled, "keygen cancelled during WAIT_PEERS", ctx.Err())
		}
		return nil, errs.Wrap(errs.PeerTimeout, "no peers joined keygen session", err)
	}

	state = KeygenStart
	if err := c.relay.Start(ctx, params.SessionID, devices); err != nil {
		return abort(err)
	}

	state = KeygenECDSA
	ecdsaResult, err := c.runKeygenWithRetry(ctx, req.Engine, KeygenOp{
		Algorithm:    vaultcore.ECDSA,
		Committee:    devices,
		IsInitiator:  true,
		RelayURL:     req.RelayURL,
		SessionID:    params.SessionID,
		LocalPartyID: params.LocalPartyID,
		EncKey:       params.HexEncryptionKey,
	})
	if err != nil {
		return abort(err)
	}

	setup, err := req.Engine.SetupMessage(ctx)
	if err != nil {
		return abort(err)
	}
	if err := c.relay.UploadSetupMessage(ctx, params.SessionID, setup); err != nil {
		return abort(err)
	}

	state = KeygenEdDSA
	eddsaResult, err := c.runKeygenWithRetry(ctx, req.Engine, KeygenOp{
		Algorithm:    vaultcore.EdDSA,
		Committee:    devices,
		IsInitiator:  true,
		RelayURL:     req.RelayURL,
		SessionID:    params.SessionID,
		LocalPartyID: params.LocalPartyID,
		EncKey:       params.HexEncryptionKey,
		SetupMessage: setup,
	})
	if err != nil {
		return abort(err)
	}

	if ecdsaResult.ChainCode != eddsaResult.ChainCode {
		return abort(errs.New(errs.KeygenFailed, "chain code mismatch between ecdsa and eddsa runs"))
	}

	state = KeygenSignalComplete
	if err := c.relay.SignalComplete(ctx, params.SessionID, params.LocalPartyID); err != nil {
		return abort(err)
	}

	state = KeygenWaitAllComplete
	if err := relay.Poll(ctx, waitPeersInterval, waitPeersDeadline, func() (bool, error) {
		return c.relay.GetComplete(ctx, params.SessionID, devices)
	}); err != nil {
		return abort(err)
	}

	state = KeygenDone
	log.WithField("state", state).Info("keygen complete")

	v := &vaultcore.Vault{
		Name:         req.VaultName,
		PublicKeys:   vaultcore.PublicKeys{ECDSA: ecdsaResult.PublicKey, EdDSA: eddsaResult.PublicKey},
		HexChainCode: ecdsaResult.ChainCode,
		Signers:      devices,
		LocalPartyID: params.LocalPartyID,
		KeyShares: map[vaultcore.Algorithm][]byte{
			vaultcore.ECDSA: ecdsaResult.KeyShare,
			vaultcore.EdDSA: eddsaResult.KeyShare,
		},
		LibType:   vaultcore.LibDKLS,
		CreatedAt: time.Now().UnixMilli(),
	}
	v.ID = v.PublicKeys.ECDSA
	return v, nil
}

// waitPeers polls GET /<sessionId> until at least one non-self
// participant has joined, per spec §4.4.2. The returned list is
// [localPartyId, ...others-dedup].
func (c *Coordinator) waitPeers(ctx context.Context, sessionID, localPartyID string) ([]string, error) {
	var devices []string
	err := relay.Poll(ctx, waitPeersInterval, waitPeersDeadline, func() (bool, error) {
		participants, err := c.relay.Participants(ctx, sessionID)
		if err != nil {
			return false, nil // transient read errors keep polling until deadline
		}
		devices = mergeLocalFirst(localPartyID, participants)
		hasPeer := len(devices) >= 2
		return hasPeer, nil
	})
	return devices, err
}

// runKeygenWithRetry retries a single algorithm's StartKeygen call up to
// keygenRetries times on transient failure, per spec §4.4.2.
func (c *Coordinator) runKeygenWithRetry(ctx context.Context, engine Engine, op KeygenOp) (KeygenResult, error) {
	var last error
	for attempt := 0; attempt < keygenRetries; attempt++ {
		result, err := engine.StartKeygen(ctx, op)
		if err == nil {
			return result, nil
		}
		last = err
		c.logger.WithField("algorithm", op.Algorithm).WithField("attempt", attempt).WithError(err).Warn("keygen round failed, retrying")
	}
	return KeygenResult{}, last
}

func mergeLocalFirst(local string, participants []string) []string {
	out := []string{local}
	seen := map[string]bool{local: true}
	for _, p := range participants {
		if !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	return out
}
