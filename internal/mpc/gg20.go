package mpc

import (
	"encoding/json"

	"github.com/vultisig/mobile-tss-lib/tss"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// GG20Info summarizes a legacy GG20 key share for diagnostic inspection
// (spec §1's vault.Type()/introspection surface). It deliberately never
// exposes a reconstructable private key: only the values already public
// in the vault container itself, plus the share's index within the
// threshold scheme.
type GG20Info struct {
	ShareID   string
	ChainCode string
}

// InspectGG20Share parses a single GG20 key share's JSON-encoded
// tss.LocalState, taking the share bytes as JSON directly (no base64
// decoding), and returns its public metadata.
// It is a read-only counterpart to keygen/keysign and never attempts
// Lagrange interpolation across shares.
func InspectGG20Share(alg vaultcore.Algorithm, keyshareJSON []byte) (GG20Info, error) {
	var state tss.LocalState
	if err := json.Unmarshal(keyshareJSON, &state); err != nil {
		return GG20Info{}, errs.Wrap(errs.CorruptedData, "parse gg20 local state", err)
	}

	info := GG20Info{ChainCode: state.ChainCodeHex}

	switch alg {
	case vaultcore.ECDSA:
		if state.ECDSALocalData.ShareID != nil {
			info.ShareID = state.ECDSALocalData.ShareID.String()
		}
	case vaultcore.EdDSA:
		if state.EDDSALocalData.ShareID != nil {
			info.ShareID = state.EDDSALocalData.ShareID.String()
		}
	default:
		return GG20Info{}, errs.New(errs.InvalidInput, "unknown algorithm for gg20 share")
	}

	return info, nil
}
