// Package chainkind maps supported chains to the algorithm that signs
// for them and classifies the chain-specific transaction payloads the
// signer accepts, replacing a bare `transaction: any` contract with a
// tagged union (spec §4.5, §9 "transaction: any -> tagged union").
package chainkind

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
)

// Chain identifies a supported network, grounded in the teacher's
// SupportedChain enumeration.
type Chain string

const (
	Bitcoin     Chain = "bitcoin"
	BitcoinCash Chain = "bitcoincash"
	Litecoin    Chain = "litecoin"
	Dogecoin    Chain = "dogecoin"
	Dash        Chain = "dash"
	Zcash       Chain = "zcash"
	Ethereum    Chain = "ethereum"
	BSC         Chain = "bsc"
	Avalanche   Chain = "avalanche"
	Polygon     Chain = "polygon"
	CronosChain Chain = "cronoschain"
	Arbitrum    Chain = "arbitrum"
	Optimism    Chain = "optimism"
	Base        Chain = "base"
	Blast       Chain = "blast"
	Zksync      Chain = "zksync"
	THORChain   Chain = "thorchain"
	Tron        Chain = "tron"
	Ripple      Chain = "ripple"
	Solana      Chain = "solana"
	SUI         Chain = "sui"
	Polkadot    Chain = "polkadot"
	Ton         Chain = "ton"
	Cardano     Chain = "cardano"
)

var algorithmByChain = map[Chain]vaultcore.Algorithm{
	Bitcoin:     vaultcore.ECDSA,
	BitcoinCash: vaultcore.ECDSA,
	Litecoin:    vaultcore.ECDSA,
	Dogecoin:    vaultcore.ECDSA,
	Dash:        vaultcore.ECDSA,
	Zcash:       vaultcore.ECDSA,
	Ethereum:    vaultcore.ECDSA,
	BSC:         vaultcore.ECDSA,
	Avalanche:   vaultcore.ECDSA,
	Polygon:     vaultcore.ECDSA,
	CronosChain: vaultcore.ECDSA,
	Arbitrum:    vaultcore.ECDSA,
	Optimism:    vaultcore.ECDSA,
	Base:        vaultcore.ECDSA,
	Blast:       vaultcore.ECDSA,
	Zksync:      vaultcore.ECDSA,
	THORChain:   vaultcore.ECDSA,
	Tron:        vaultcore.ECDSA,
	Ripple:      vaultcore.ECDSA,
	Solana:      vaultcore.EdDSA,
	SUI:         vaultcore.EdDSA,
	Polkadot:    vaultcore.EdDSA,
	Ton:         vaultcore.EdDSA,
	Cardano:     vaultcore.EdDSA,
}

// Algorithm returns the algorithm a vault must hold a key share for in
// order to sign for chain.
func Algorithm(chain Chain) (vaultcore.Algorithm, error) {
	alg, ok := algorithmByChain[chain]
	if !ok {
		return "", errs.New(errs.InvalidInput, "unsupported chain: "+string(chain))
	}
	return alg, nil
}

// StripQuotes trims one layer of JSON-string quoting, for values like
// the Fast-Vault server's session ID response that arrive as a quoted
// JSON scalar rather than a bare string (spec §4.5).
func StripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// Kind tags which transaction shape a Transaction carries.
type Kind string

const (
	KindEVM     Kind = "evm"
	KindUTXO    Kind = "utxo"
	KindCosmos  Kind = "cosmos"
	KindGeneric Kind = "generic"
)

// EVMTx is the payload for EVM-family chains: a single RLP-encoded
// unsigned transaction.
type EVMTx struct {
	ChainID        uint64
	UnsignedRLPHex string
}

// UTXOInput is one input of a UTXO transaction, each hashed and signed
// independently (spec §4.5's "UTXO multi-signature" case).
type UTXOInput struct {
	PrevTxHash string
	OutputIdx  uint32
	Sequence   uint32
}

// UTXOTx is the payload for UTXO-family chains.
type UTXOTx struct {
	Inputs         []UTXOInput
	UnsignedHexPSBT string
}

// CosmosTx is the payload for Cosmos-SDK-family chains: a sign-doc the
// caller has already serialized.
type CosmosTx struct {
	ChainID    string
	SignDocHex string
}

// GenericTx is the fallback payload for chains with no dedicated
// shape: an opaque pre-image the registered hasher reduces to a digest.
type GenericTx struct {
	Payload []byte
}

// Transaction is the tagged union replacing `transaction: any` at the
// signer boundary. Exactly one of the typed fields is set, selected by
// Kind.
type Transaction struct {
	Kind    Kind
	Chain   Chain
	EVM     *EVMTx
	UTXO    *UTXOTx
	Cosmos  *CosmosTx
	Generic *GenericTx
}

// Validate checks that Kind and the populated payload field agree.
func (t Transaction) Validate() error {
	switch t.Kind {
	case KindEVM:
		if t.EVM == nil {
			return errs.New(errs.InvalidInput, "evm transaction missing EVM payload")
		}
	case KindUTXO:
		if t.UTXO == nil || len(t.UTXO.Inputs) == 0 {
			return errs.New(errs.InvalidInput, "utxo transaction missing inputs")
		}
	case KindCosmos:
		if t.Cosmos == nil {
			return errs.New(errs.InvalidInput, "cosmos transaction missing Cosmos payload")
		}
	case KindGeneric:
		if t.Generic == nil {
			return errs.New(errs.InvalidInput, "generic transaction missing payload")
		}
	default:
		return errs.New(errs.InvalidInput, "unknown transaction kind: "+string(t.Kind))
	}
	return nil
}

// PreSignHasher reduces a Transaction to the ordered list of digests
// that must each be run through keysign (one per UTXO input, one
// otherwise).
type PreSignHasher interface {
	Hashes(tx Transaction) ([]string, error)
}

type hasherFunc func(tx Transaction) ([]string, error)

func (f hasherFunc) Hashes(tx Transaction) ([]string, error) { return f(tx) }

var registry = map[Kind]PreSignHasher{
	KindGeneric: hasherFunc(genericHasher),
}

// Register installs a PreSignHasher for kind, overriding any default.
// Chain-specific packages call this in their init() to extend the
// signer's transaction support without modifying this package.
func Register(kind Kind, h PreSignHasher) {
	registry[kind] = h
}

// Hash dispatches tx to its registered hasher.
func Hash(tx Transaction) ([]string, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	h, ok := registry[tx.Kind]
	if !ok {
		return nil, errs.New(errs.InvalidInput, "no hasher registered for kind: "+string(tx.Kind))
	}
	return h.Hashes(tx)
}

// genericHasher reduces an opaque payload to its SHA-256 digest. It is
// the built-in hasher for KindGeneric only; other kinds have no hasher
// until one is Register-ed, and Hash rejects them until then.
func genericHasher(tx Transaction) ([]string, error) {
	sum := sha256.Sum256(tx.Generic.Payload)
	return []string{hex.EncodeToString(sum[:])}, nil
}
