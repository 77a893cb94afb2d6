package container

import (
	"time"

	v1 "github.com/vultisig/commondata/go/vultisig/vault/v1"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// toProto converts our domain Vault into the wire protobuf message shared
// with every other Vultisig SDK. Field names follow the teacher's existing
// usage in internal/vault/parser.go (PublicKeyEcdsa, PublicKeyEddsa,
// HexChainCode, LocalPartyId, KeyShares) and vultisig-vultisig-cluster's
// LocalVault (Signers, ResharePrefix, LibType).
func toProto(v *vaultcore.Vault) *v1.Vault {
	pv := &v1.Vault{
		Name:           v.Name,
		PublicKeyEcdsa: v.PublicKeys.ECDSA,
		PublicKeyEddsa: v.PublicKeys.EdDSA,
		HexChainCode:   v.HexChainCode,
		LocalPartyId:   v.LocalPartyID,
		Signers:        append([]string(nil), v.Signers...),
		ResharePrefix:  v.ResharePrefix,
		CreatedAt:      timestamppb.New(time.UnixMilli(v.CreatedAt)),
	}

	if v.LibType == vaultcore.LibDKLS {
		pv.LibType = v1.LibType_LIB_TYPE_DKLS
	} else {
		pv.LibType = v1.LibType_LIB_TYPE_GG20
	}

	if share, ok := v.KeyShares[vaultcore.ECDSA]; ok {
		pv.KeyShares = append(pv.KeyShares, &v1.Vault_KeyShare{
			PublicKey: v.PublicKeys.ECDSA,
			Keyshare:  string(share),
		})
	}
	if share, ok := v.KeyShares[vaultcore.EdDSA]; ok {
		pv.KeyShares = append(pv.KeyShares, &v1.Vault_KeyShare{
			PublicKey: v.PublicKeys.EdDSA,
			Keyshare:  string(share),
		})
	}

	return pv
}

// fromProto is the inverse of toProto, reconstructing the domain Vault
// from a decoded wire message. Key shares are matched to their algorithm
// by comparing each share's public key against the vault-level ECDSA/EdDSA
// public keys, exactly as the teacher's ParseVaultFile does when it
// classifies a v1.Vault_KeyShare as "ECDSA" vs "EDDSA".
func fromProto(pv *v1.Vault) *vaultcore.Vault {
	v := &vaultcore.Vault{
		Name:          pv.Name,
		PublicKeys:    vaultcore.PublicKeys{ECDSA: pv.PublicKeyEcdsa, EdDSA: pv.PublicKeyEddsa},
		HexChainCode:  pv.HexChainCode,
		Signers:       append([]string(nil), pv.Signers...),
		LocalPartyID:  pv.LocalPartyId,
		ResharePrefix: pv.ResharePrefix,
		KeyShares:     make(map[vaultcore.Algorithm][]byte, 2),
	}
	v.ID = pv.PublicKeyEcdsa

	if pv.LibType == v1.LibType_LIB_TYPE_DKLS {
		v.LibType = vaultcore.LibDKLS
	} else {
		v.LibType = vaultcore.LibGG20
	}

	if pv.CreatedAt != nil {
		v.CreatedAt = pv.CreatedAt.AsTime().UnixMilli()
	}

	for _, ks := range pv.KeyShares {
		switch ks.PublicKey {
		case pv.PublicKeyEddsa:
			v.KeyShares[vaultcore.EdDSA] = []byte(ks.Keyshare)
		default:
			v.KeyShares[vaultcore.ECDSA] = []byte(ks.Keyshare)
		}
	}

	return v
}
