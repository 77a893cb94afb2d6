package mpc

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
)

// Role names the caller's position, used as the localPartyId prefix
// (spec §4.4.1).
type Role string

const (
	RoleClient   Role = "client"
	RoleServer   Role = "server"
	RoleSDKParty Role = "sdk-party"
)

// SessionParams holds the per-operation values the initiator generates
// before any relay call (spec §4.4.1).
type SessionParams struct {
	SessionID        string
	HexEncryptionKey string
	HexChainCode     string // only set for keygen
	LocalPartyID     string
}

// NewSessionParams generates fresh session parameters. withChainCode
// should be true for keygen, false for keysign.
func NewSessionParams(role Role, withChainCode bool) (SessionParams, error) {
	encKey, err := randomHex(32)
	if err != nil {
		return SessionParams{}, errs.Wrap(errs.Internal, "generate encryption key", err)
	}

	partyID, err := newPartyID(role)
	if err != nil {
		return SessionParams{}, err
	}

	params := SessionParams{
		SessionID:        uuid.New().String(),
		HexEncryptionKey: encKey,
		LocalPartyID:     partyID,
	}

	if withChainCode {
		chainCode, err := randomHex(32)
		if err != nil {
			return SessionParams{}, errs.Wrap(errs.Internal, "generate chain code", err)
		}
		params.HexChainCode = chainCode
	}

	return params, nil
}

func newPartyID(role Role) (string, error) {
	tag, err := randomHex(4)
	if err != nil {
		return "", errs.Wrap(errs.Internal, "generate party id tag", err)
	}
	return fmt.Sprintf("%s-%s", role, tag), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
