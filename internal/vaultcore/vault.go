// Package vaultcore defines the Vault domain type and the invariants that
// govern it (identity, type derivation, threshold derivation), independent
// of how a vault is encoded on the wire or persisted.
package vaultcore

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// LibType identifies which threshold scheme produced a vault's key shares.
type LibType int

const (
	LibGG20 LibType = iota
	LibDKLS
)

func (l LibType) String() string {
	if l == LibGG20 {
		return "GG20"
	}
	return "DKLS"
}

// Algorithm names the two signature schemes a vault's key shares cover.
type Algorithm string

const (
	ECDSA Algorithm = "ecdsa"
	EdDSA Algorithm = "eddsa"
)

// PublicKeys holds the two public keys derived from keygen.
type PublicKeys struct {
	ECDSA string
	EdDSA string
}

// Vault is the central entity of the SDK: a set of threshold key shares,
// their metadata, and the parties that hold them. See spec §3.
type Vault struct {
	ID            string
	Name          string
	PublicKeys    PublicKeys
	HexChainCode  string
	Signers       []string
	LocalPartyID  string
	KeyShares     map[Algorithm][]byte
	LibType       LibType
	ResharePrefix string
	CreatedAt     int64 // ms

	// UI/local metadata, not part of the wire container.
	IsBackedUp   bool
	Order        int
	LastModified int64
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9 _-]{2,50}$`)

// Validate checks the invariants listed in spec §3 (I1-I3) plus basic
// field-level sanity. It does not check I4 (re-import overwrite), which is
// a store-level concern.
func Validate(v *Vault) error {
	if v == nil {
		return fmt.Errorf("nil vault")
	}
	if !nameRe.MatchString(v.Name) {
		return fmt.Errorf("invalid vault name %q", v.Name)
	}
	if v.PublicKeys.ECDSA == "" && v.PublicKeys.EdDSA == "" {
		return fmt.Errorf("vault has no public keys")
	}
	if v.ID != v.PublicKeys.ECDSA {
		return fmt.Errorf("vault id %q does not match ecdsa public key %q (I1)", v.ID, v.PublicKeys.ECDSA)
	}
	if !contains(v.Signers, v.LocalPartyID) {
		return fmt.Errorf("local party %q is not a signer (I2)", v.LocalPartyID)
	}
	if len(v.Signers) < 2 {
		return fmt.Errorf("vault must have at least 2 signers, got %d", len(v.Signers))
	}
	if len(v.KeyShares) != 2 {
		return fmt.Errorf("vault must have exactly 2 key shares (ecdsa+eddsa), got %d (I3)", len(v.KeyShares))
	}
	if _, ok := v.KeyShares[ECDSA]; !ok {
		return fmt.Errorf("vault is missing an ecdsa key share (I3)")
	}
	if _, ok := v.KeyShares[EdDSA]; !ok {
		return fmt.Errorf("vault is missing an eddsa key share (I3)")
	}
	if len(v.HexChainCode) != 64 {
		return fmt.Errorf("hex chain code must be 32 bytes hex-encoded, got %d chars", len(v.HexChainCode))
	}
	return nil
}

// Type derives "fast" vs "secure" from the signer list: a vault is "fast"
// iff at least one signer identifier starts with "Server-".
func (v *Vault) Type() string {
	for _, s := range v.Signers {
		if strings.HasPrefix(s, "Server-") {
			return "fast"
		}
	}
	return "secure"
}

// Threshold derives the signing threshold from the signer count:
// ceil((n+1)/2) for n>2, else 2.
func (v *Vault) Threshold() int {
	n := len(v.Signers)
	if n <= 2 {
		return 2
	}
	return int(math.Ceil(float64(n+1) / 2))
}

// HasKeyShare reports whether the vault holds a share for the given
// algorithm.
func (v *Vault) HasKeyShare(alg Algorithm) bool {
	_, ok := v.KeyShares[alg]
	return ok
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
