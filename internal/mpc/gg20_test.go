package mpc

import (
	"testing"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

func TestInspectGG20ShareRejectsCorruptJSON(t *testing.T) {
	_, err := InspectGG20Share(vaultcore.ECDSA, []byte("not json"))
	if errs.KindOf(err) != errs.CorruptedData {
		t.Fatalf("expected CorruptedData, got %v", err)
	}
}

func TestInspectGG20ShareRejectsUnknownAlgorithm(t *testing.T) {
	_, err := InspectGG20Share(vaultcore.Algorithm("unknown"), []byte("{}"))
	if errs.KindOf(err) != errs.InvalidInput {
		t.Fatalf("expected InvalidInput for unknown algorithm, got %v", err)
	}
}
