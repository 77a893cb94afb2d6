// Package client is the public facade of the SDK: vault lifecycle
// (import/export/rename/delete), and keygen/keysign orchestration, all
// behind a single Client value (spec §1's consumer-facing surface).
package client

import (
	"context"

	"github.com/vultisig/vultisig-sdk-core/internal/chainkind"
	"github.com/vultisig/vultisig-sdk-core/internal/container"
	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/mpc"
	"github.com/vultisig/vultisig-sdk-core/internal/pwcache"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
	"github.com/vultisig/vultisig-sdk-core/internal/signer"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultstore"
)

// Re-export the domain types callers need without reaching into internal/.
type (
	Vault       = vaultcore.Vault
	Algorithm   = vaultcore.Algorithm
	Chain       = chainkind.Chain
	Transaction = chainkind.Transaction
	Signature   = signer.Signature
	SignResult  = signer.Result
	Progress    = signer.Progress
	Engine      = mpc.Engine
	RelayClient = relay.Client
)

const (
	ECDSA = vaultcore.ECDSA
	EdDSA = vaultcore.EdDSA
)

// Client is the SDK's entry point: a vault store bound to a backend,
// a relay endpoint, and a password cache, all scoped to one process.
type Client struct {
	store    *vaultstore.Store
	relayURL string
	pwCache  *pwcache.Cache
}

// New constructs a Client against backend for vault persistence and
// relayURL for keygen/keysign coordination.
func New(backend vaultstore.Backend, relayURL string) *Client {
	return &Client{
		store:    vaultstore.New(backend),
		relayURL: relayURL,
		pwCache:  pwcache.New(pwcache.DefaultTTL),
	}
}

// Import decodes a .vult container and persists it, returning the
// stored vault (spec §2, §3's I4 "re-import overwrites").
func (c *Client) Import(ctx context.Context, containerB64, password string) (*Vault, error) {
	v, err := container.Decode(containerB64, password)
	if err != nil {
		return nil, err
	}
	if err := vaultcore.Validate(v); err != nil {
		return nil, errs.Wrap(errs.InvalidInput, "imported vault failed validation", err)
	}
	if err := c.store.Put(ctx, v); err != nil {
		return nil, err
	}
	if active, err := c.store.GetActive(ctx); err == nil && active == "" {
		_ = c.store.SetActive(ctx, v.ID)
	}
	return v, nil
}

// Export re-encodes a stored vault as a .vult container, optionally
// password-protected.
func (c *Client) Export(ctx context.Context, vaultID, password string) (string, error) {
	v, err := c.store.Get(ctx, vaultID)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", errs.New(errs.VaultNotFound, "vault not found: "+vaultID)
	}
	return container.Encode(v, password)
}

// List returns every stored vault, ordered per spec §3's ordering rule.
func (c *Client) List(ctx context.Context) ([]*Vault, error) {
	return c.store.List(ctx)
}

// Get returns a single stored vault by ID.
func (c *Client) Get(ctx context.Context, vaultID string) (*Vault, error) {
	return c.store.Get(ctx, vaultID)
}

// Rename changes a stored vault's display name.
func (c *Client) Rename(ctx context.Context, vaultID, newName string) error {
	v, err := c.store.Get(ctx, vaultID)
	if err != nil {
		return err
	}
	if v == nil {
		return errs.New(errs.VaultNotFound, "vault not found: "+vaultID)
	}
	v.Name = newName
	if err := vaultcore.Validate(v); err != nil {
		return errs.Wrap(errs.InvalidInput, "renamed vault failed validation", err)
	}
	return c.store.Put(ctx, v)
}

// Delete removes a stored vault and its cached password.
func (c *Client) Delete(ctx context.Context, vaultID string) error {
	c.pwCache.Destroy(vaultID)
	return c.store.Delete(ctx, vaultID)
}

// SetActive marks vaultID as the default vault for subsequent calls
// that don't name one explicitly.
func (c *Client) SetActive(ctx context.Context, vaultID string) error {
	return c.store.SetActive(ctx, vaultID)
}

// KeygenRequest parameterizes a new-vault ceremony.
type KeygenRequest struct {
	VaultName string
	Role      mpc.Role
	Engine    mpc.Engine
}

// Keygen runs a full DKLS keygen ceremony and persists the resulting vault.
func (c *Client) Keygen(ctx context.Context, req KeygenRequest) (*Vault, error) {
	coordinator := mpc.New(relay.New(c.relayURL))
	v, err := coordinator.Keygen(ctx, mpc.KeygenRequest{
		VaultName: req.VaultName,
		Role:      req.Role,
		RelayURL:  c.relayURL,
		Engine:    req.Engine,
	})
	if err != nil {
		return nil, err
	}
	if err := vaultcore.Validate(v); err != nil {
		return nil, errs.Wrap(errs.KeygenFailed, "generated vault failed validation", err)
	}
	if err := c.store.Put(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// SignRequest parameterizes a keysign against a stored vault.
type SignRequest struct {
	VaultID        string
	Chain          Chain
	Transaction    Transaction
	Mode           mpc.Mode
	Engine         mpc.Engine
	Role           mpc.Role
	VaultPassword  string
	DerivationPath string
	FastVault      *mpc.FastVaultClient
	OnProgress     func(Progress)
}

// Sign looks up VaultID and runs the signer flow against it.
func (c *Client) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	v, err := c.store.Get(ctx, req.VaultID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errs.New(errs.VaultNotFound, "vault not found: "+req.VaultID)
	}
	return signer.Sign(ctx, c.pwCache, signer.Request{
		Vault:          v,
		Chain:          req.Chain,
		Transaction:    req.Transaction,
		Mode:           req.Mode,
		RelayURL:       c.relayURL,
		Engine:         req.Engine,
		Role:           req.Role,
		VaultPassword:  req.VaultPassword,
		DerivationPath: req.DerivationPath,
		FastVault:      req.FastVault,
		OnProgress:     req.OnProgress,
	})
}
