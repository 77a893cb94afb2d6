package mpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
	"github.com/vultisig/vultisig-sdk-core/internal/relay"
)

// resendCooldown is the Fast-Vault server's minimum interval between
// verification-code resends (spec §4.5, "fast" mode).
const resendCooldown = 3 * time.Minute

// fastVaultTimeout bounds a single Fast-Vault server call.
const fastVaultTimeout = 10 * time.Second

// FastVaultClient talks to the Vultisig Fast-Vault server, the
// always-on server co-signer used by "fast" mode keygen and keysign
// (spec §4.5). It is a thin JSON/HTTP wrapper in the same shape as
// relay.Client, reusing the same retry policy.
type FastVaultClient struct {
	baseURL string
	http    *http.Client
	policy  relay.Policy
	logger  *logrus.Entry

	lastResend time.Time
}

// NewFastVaultClient returns a client bound to baseURL (e.g.
// "https://api.vultisig.com/vault").
func NewFastVaultClient(baseURL string) *FastVaultClient {
	return &FastVaultClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: fastVaultTimeout},
		policy:  relay.DefaultPolicy,
		logger:  logrus.WithField("component", "fastvault"),
	}
}

// FastKeygenRequest is the body of POST /vault/create.
type FastKeygenRequest struct {
	Name           string `json:"name"`
	SessionID      string `json:"session_id"`
	HexEncryptionKey string `json:"hex_encryption_key"`
	HexChainCode   string `json:"hex_chain_code"`
	LocalPartyID   string `json:"local_party_id"`
	Email          string `json:"email"`
	Password       string `json:"encryption_password"`
}

// CreateVault kicks off a fast-mode keygen on the server; the server
// joins the relay session as its own party and emails a verification
// code to req.Email.
func (f *FastVaultClient) CreateVault(ctx context.Context, req FastKeygenRequest) error {
	return f.postJSON(ctx, "/vault/create", req, nil)
}

// Verify submits the emailed verification code for publicKeyECDSA.
func (f *FastVaultClient) Verify(ctx context.Context, publicKeyECDSA, code string) error {
	path := fmt.Sprintf("/vault/verify/%s/%s", publicKeyECDSA, code)
	return f.do(ctx, http.MethodGet, path, nil, nil)
}

// ResendVerification requests a new code, honoring the server's cooldown.
func (f *FastVaultClient) ResendVerification(ctx context.Context, publicKeyECDSA string) error {
	if !f.lastResend.IsZero() && time.Since(f.lastResend) < resendCooldown {
		return errs.New(errs.ServerRefused, "resend requested before cooldown elapsed")
	}
	if err := f.postJSON(ctx, "/vault/resend", map[string]string{"public_key_ecdsa": publicKeyECDSA}, nil); err != nil {
		return err
	}
	f.lastResend = time.Now()
	return nil
}

// FastSignRequest is the body of POST /vault/sign.
type FastSignRequest struct {
	PublicKey        string   `json:"public_key"`
	Messages         []string `json:"messages"`
	Session          string   `json:"session"`
	HexEncryptionKey string   `json:"hex_encryption_key"`
	DerivePath       string   `json:"derive_path"`
	IsECDSA          bool     `json:"is_ecdsa"`
	VaultPassword    string   `json:"vault_password"`
}

// Sign asks the Fast-Vault server to join a keysign session as the
// server co-signer. The server's session ID response is read and
// discarded; only an error is returned.
func (f *FastVaultClient) Sign(ctx context.Context, req FastSignRequest) error {
	var raw json.RawMessage
	if err := f.postJSON(ctx, "/vault/sign", req, &raw); err != nil {
		return err
	}
	_ = stripQuotes(string(raw))
	return nil
}

// Get downloads an encrypted vault container by public key, presenting
// password as the x-password header (spec §4.5's "fast" vault export path).
func (f *FastVaultClient) Get(ctx context.Context, publicKeyECDSA, password string) ([]byte, error) {
	reqURL := f.baseURL + "/vault/get/" + publicKeyECDSA
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "build fast-vault get request", err)
	}
	httpReq.Header.Set("x-password", password)

	var result []byte
	err = relay.Do(ctx, f.policy, func(attempt int) (bool, error) {
		resp, doErr := f.http.Do(httpReq)
		if doErr != nil {
			return true, errs.Wrap(errs.RelayTransport, "fast-vault request failed", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return false, errs.New(errs.InvalidPassword, "fast-vault rejected password")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return false, errs.New(errs.ServerRefused, "fast-vault server refused get: "+strconv.Itoa(resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return true, errs.New(errs.RelayTransport, "fast-vault server error: "+strconv.Itoa(resp.StatusCode))
		}

		buf := new(bytes.Buffer)
		if _, copyErr := buf.ReadFrom(resp.Body); copyErr != nil {
			return false, errs.Wrap(errs.RelayTransport, "read fast-vault response", copyErr)
		}
		result = buf.Bytes()
		return false, nil
	})
	return result, err
}

func (f *FastVaultClient) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal fast-vault request", err)
	}
	return f.do(ctx, http.MethodPost, path, bytes.NewReader(data), out)
}

func (f *FastVaultClient) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var payload []byte
	if body != nil {
		payload = make([]byte, body.Len())
		_, _ = body.Read(payload)
	}

	return relay.Do(ctx, f.policy, func(attempt int) (bool, error) {
		var reqBody *bytes.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		} else {
			reqBody = bytes.NewReader(nil)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, reqBody)
		if err != nil {
			return false, errs.Wrap(errs.Internal, "build fast-vault request", err)
		}
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		resp, err := f.http.Do(httpReq)
		if err != nil {
			f.logger.WithError(err).WithField("attempt", attempt).Debug("fast-vault request failed, retrying")
			return true, errs.Wrap(errs.RelayTransport, "fast-vault request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return false, errs.New(errs.ServerRefused, "fast-vault server refused request: "+strconv.Itoa(resp.StatusCode))
		}
		if resp.StatusCode >= 500 {
			return true, errs.New(errs.RelayTransport, "fast-vault server error: "+strconv.Itoa(resp.StatusCode))
		}

		if out != nil {
			if decErr := json.NewDecoder(resp.Body).Decode(out); decErr != nil {
				return false, errs.Wrap(errs.RelayTransport, "decode fast-vault response", decErr)
			}
		}
		return false, nil
	})
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}
