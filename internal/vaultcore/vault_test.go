package vaultcore

import "testing"

func validVault() *Vault {
	return &Vault{
		ID:           "ecdsa-pub",
		Name:         "My Vault",
		PublicKeys:   PublicKeys{ECDSA: "ecdsa-pub", EdDSA: "eddsa-pub"},
		HexChainCode: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		Signers:      []string{"party-a", "party-b"},
		LocalPartyID: "party-a",
		KeyShares: map[Algorithm][]byte{
			ECDSA: []byte("ecdsa-share"),
			EdDSA: []byte("eddsa-share"),
		},
		LibType: LibDKLS,
	}
}

func TestValidateAcceptsWellFormedVault(t *testing.T) {
	if err := Validate(validVault()); err != nil {
		t.Fatalf("expected valid vault, got error: %v", err)
	}
}

func TestValidateRejectsIDMismatch(t *testing.T) {
	v := validVault()
	v.ID = "something-else"
	if err := Validate(v); err == nil {
		t.Fatal("expected I1 violation to be rejected")
	}
}

func TestValidateRejectsLocalPartyNotInSigners(t *testing.T) {
	v := validVault()
	v.LocalPartyID = "party-ghost"
	if err := Validate(v); err == nil {
		t.Fatal("expected I2 violation to be rejected")
	}
}

func TestValidateRejectsMissingKeyShare(t *testing.T) {
	v := validVault()
	delete(v.KeyShares, EdDSA)
	if err := Validate(v); err == nil {
		t.Fatal("expected I3 violation to be rejected")
	}
}

func TestTypeDerivation(t *testing.T) {
	v := validVault()
	if v.Type() != "secure" {
		t.Fatalf("expected secure, got %s", v.Type())
	}

	v.Signers = []string{"party-a", "Server-1234"}
	v.LocalPartyID = "party-a"
	if v.Type() != "fast" {
		t.Fatalf("expected fast, got %s", v.Type())
	}
}

func TestThresholdDerivation(t *testing.T) {
	cases := []struct {
		signers   int
		threshold int
	}{
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
	}
	for _, c := range cases {
		v := validVault()
		v.Signers = make([]string, c.signers)
		for i := range v.Signers {
			v.Signers[i] = "p"
		}
		v.Signers[0] = v.LocalPartyID
		if got := v.Threshold(); got != c.threshold {
			t.Errorf("signers=%d: expected threshold %d, got %d", c.signers, c.threshold, got)
		}
	}
}
