// Package relay implements C3: a stateless HTTP client against the MPC
// relay's session, participant-discovery, and ordered-message-queue
// endpoints (spec §4.3, §6.2). Call shape is grounded in
// vultisig-vultisig-cluster's TSSService use of relay.Client
// (RegisterSession/GetSession/StartSession/CompleteSession), generalized
// to the full endpoint table spec.md names.
package relay

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vultisig/vultisig-sdk-core/internal/errs"
)

// requestTimeout is the per-request HTTP timeout from spec §5.
const requestTimeout = 5 * time.Second

// Client is a thin, stateless wrapper around a single relay base URL.
type Client struct {
	baseURL string
	http    *http.Client
	policy  Policy
	logger  *logrus.Entry
}

// New returns a Client for baseURL (e.g. "https://api.vultisig.com/router").
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
		policy:  DefaultPolicy,
		logger:  logrus.WithField("component", "relay"),
	}
}

// Message is one encrypted MPC round message, per spec §4.3's /message body.
type Message struct {
	SessionID  string `json:"session_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Body       string `json:"body"`
	Hash       string `json:"hash"`
	SequenceNo int    `json:"sequence_no"`
}

// HashBody computes the SHA-256 hash the relay uses for dedupe/ack
// addressing (spec §4.3, §6.2).
func HashBody(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Join POSTs localPartyId to create or join sessionID.
func (c *Client) Join(ctx context.Context, sessionID, localPartyID string) error {
	return c.postJSON(ctx, "/"+sessionID, []string{localPartyID}, nil)
}

// RegisterSession is an alias for Join, matching the name used by
// vultisig-vultisig-cluster's TSSService.
func (c *Client) RegisterSession(ctx context.Context, sessionID, localPartyID string) error {
	return c.Join(ctx, sessionID, localPartyID)
}

// Participants returns the current participant list; an unknown session
// is tolerated as an empty slice, never an error (spec §4.3).
func (c *Client) Participants(ctx context.Context, sessionID string) ([]string, error) {
	var devices []string
	err := c.getJSON(ctx, "/"+sessionID, &devices, true)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// GetSession is an alias for Participants.
func (c *Client) GetSession(ctx context.Context, sessionID string) ([]string, error) {
	return c.Participants(ctx, sessionID)
}

// CloseSession deletes sessionID. Used both for normal teardown and the
// best-effort abort path on cancellation/error (spec §4.4).
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/"+sessionID, nil, nil, true)
}

// Start commits the final participant set for sessionID.
func (c *Client) Start(ctx context.Context, sessionID string, participants []string) error {
	return c.postJSON(ctx, "/start/"+sessionID, participants, nil)
}

// StartSession is an alias for Start.
func (c *Client) StartSession(ctx context.Context, sessionID string, participants []string) error {
	return c.Start(ctx, sessionID, participants)
}

// GetStart reads the committed participant set, if any.
func (c *Client) GetStart(ctx context.Context, sessionID string) ([]string, error) {
	var participants []string
	err := c.getJSON(ctx, "/start/"+sessionID, &participants, true)
	return participants, err
}

// SignalComplete marks localPartyID as done with keygen/keysign.
func (c *Client) SignalComplete(ctx context.Context, sessionID, localPartyID string) error {
	return c.postJSON(ctx, "/complete/"+sessionID, []string{localPartyID}, nil)
}

// CompleteSession is an alias for SignalComplete.
func (c *Client) CompleteSession(ctx context.Context, sessionID, localPartyID string) error {
	return c.SignalComplete(ctx, sessionID, localPartyID)
}

// GetComplete reports whether every peer has signalled complete. Peers is
// the full expected participant set.
func (c *Client) GetComplete(ctx context.Context, sessionID string, peers []string) (bool, error) {
	var done []string
	if err := c.getJSON(ctx, "/complete/"+sessionID, &done, true); err != nil {
		return false, err
	}
	doneSet := make(map[string]bool, len(done))
	for _, p := range done {
		doneSet[p] = true
	}
	for _, p := range peers {
		if !doneSet[p] {
			return false, nil
		}
	}
	return true, nil
}

// PostMessage enqueues an encrypted round message.
func (c *Client) PostMessage(ctx context.Context, sessionID string, msg Message) error {
	return c.postJSON(ctx, "/message/"+sessionID, msg, nil)
}

// Messages drains messages addressed to partyID.
func (c *Client) Messages(ctx context.Context, sessionID, partyID string) ([]Message, error) {
	var msgs []Message
	err := c.getJSON(ctx, fmt.Sprintf("/message/%s/%s", sessionID, partyID), &msgs, true)
	return msgs, err
}

// AckMessage deletes one message by hash after successful consumption.
func (c *Client) AckMessage(ctx context.Context, sessionID, partyID, hash string) error {
	path := fmt.Sprintf("/message/%s/%s/%s", sessionID, partyID, hash)
	return c.do(ctx, http.MethodDelete, path, nil, nil, true)
}

// UploadSetupMessage stores the single-slot shared setup blob for sessionID.
func (c *Client) UploadSetupMessage(ctx context.Context, sessionID string, setup []byte) error {
	return c.do(ctx, http.MethodPost, "/setup-message/"+sessionID, bytes.NewReader(setup), nil, false)
}

// SetupMessage retrieves the setup blob uploaded for sessionID.
func (c *Client) SetupMessage(ctx context.Context, sessionID string) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, "/setup-message/"+sessionID, nil, &buf, true)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Ping checks relay health.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, false)
}

func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(errs.Internal, "marshal relay request body", err)
	}
	var buf bytes.Buffer
	if out == nil {
		return c.do(ctx, http.MethodPost, path, bytes.NewReader(data), nil, true)
	}
	err = c.do(ctx, http.MethodPost, path, bytes.NewReader(data), &buf, true)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any, tolerate404 bool) error {
	var buf bytes.Buffer
	if err := c.do(ctx, http.MethodGet, path, nil, &buf, tolerate404); err != nil {
		return err
	}
	if buf.Len() == 0 {
		return nil
	}
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return errs.Wrap(errs.RelayTransport, "decode relay response", err)
	}
	return nil
}

// do executes one HTTP call with the relay's retry policy (spec §4.3):
// network errors and 5xx are retried with exponential backoff and
// jitter; 4xx fails immediately. A 404 on a GET is tolerated as "no
// content" when tolerate404 is set, matching "GET on an unknown session
// must be tolerated as [], not error".
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out *bytes.Buffer, tolerate404 bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = io.ReadAll(body)
		if err != nil {
			return errs.Wrap(errs.Internal, "buffer request body", err)
		}
	}

	return Do(ctx, c.policy, func(attempt int) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return false, errs.Wrap(errs.Internal, "build relay request", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{"method": method, "path": path, "attempt": attempt}).Debug("relay request failed, retrying")
			return true, errs.Wrap(errs.RelayTransport, "relay request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound && tolerate404 && method == http.MethodGet {
			if out != nil {
				out.Reset()
			}
			return false, nil
		}

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			b, _ := io.ReadAll(resp.Body)
			if resp.StatusCode == http.StatusNotFound {
				return false, errs.New(errs.SessionExpired, "relay session not found or expired")
			}
			return false, errs.New(errs.ServerRefused, fmt.Sprintf("relay returned %d: %s", resp.StatusCode, string(b)))
		}

		if resp.StatusCode >= 500 {
			b, _ := io.ReadAll(resp.Body)
			return true, errs.New(errs.RelayTransport, fmt.Sprintf("relay returned %d: %s", resp.StatusCode, string(b)))
		}

		if out != nil {
			if _, err := io.Copy(out, resp.Body); err != nil {
				return false, errs.Wrap(errs.RelayTransport, "read relay response", err)
			}
		}
		return false, nil
	})
}
