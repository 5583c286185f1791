// Package httpapi implements the remote gateway over the backend's JSON API,
// with realtime change subscriptions carried on a websocket channel.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
)

const requestTimeout = 15 * time.Second

// Client talks to the remote backend. It implements the whole RemoteGateway
// facade; the access token captured at login is attached to every call.
type Client struct {
	baseURL     string
	realtimeURL string
	httpClient  *http.Client
	logger      *slog.Logger

	mu          sync.RWMutex
	accessToken string
}

// NewClient creates a gateway client. realtimeURL is the websocket endpoint
// used by Subscribe.
func NewClient(baseURL, realtimeURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		realtimeURL: realtimeURL,
		httpClient:  &http.Client{Timeout: requestTimeout},
		logger:      logger.With(slog.String("component", "gateway")),
	}
}

var _ portsrepo.RemoteGateway = (*Client)(nil)

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// doJSON performs one JSON round-trip, mapping HTTP statuses onto the
// engine's error taxonomy and network failures onto ErrTransport.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s %s", apperrors.ErrUnauthorized, method, path)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s %s", apperrors.ErrForbidden, method, path)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", apperrors.ErrNotFound, method, path)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s %s", apperrors.ErrDuplicate, method, path)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s %s returned %d", apperrors.ErrTransport, method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%s %s returned %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type backupEnvelopeBody struct {
	Payload   domain.Snapshot `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PushBackup implements BackupRepository.
func (c *Client) PushBackup(ctx context.Context, ownerID string, payload domain.Snapshot) (time.Time, error) {
	var resp struct {
		UpdatedAt time.Time `json:"updatedAt"`
	}
	body := struct {
		Payload domain.Snapshot `json:"payload"`
	}{Payload: payload}
	if err := c.doJSON(ctx, http.MethodPut, "/v1/backups/"+url.PathEscape(ownerID), body, &resp); err != nil {
		return time.Time{}, err
	}
	return resp.UpdatedAt, nil
}

// PullBackup implements BackupRepository.
func (c *Client) PullBackup(ctx context.Context, ownerID string) (*domain.BackupEnvelope, error) {
	var resp backupEnvelopeBody
	if err := c.doJSON(ctx, http.MethodGet, "/v1/backups/"+url.PathEscape(ownerID), nil, &resp); err != nil {
		return nil, err
	}
	resp.Payload.Normalize()
	return &domain.BackupEnvelope{
		OwnerID:   ownerID,
		Payload:   resp.Payload,
		UpdatedAt: resp.UpdatedAt,
	}, nil
}

// PushWalletData implements WalletRepository.
func (c *Client) PushWalletData(ctx context.Context, walletID, editorID string, payload domain.Snapshot) error {
	body := struct {
		EditorID string          `json:"editorID"`
		Payload  domain.Snapshot `json:"payload"`
	}{EditorID: editorID, Payload: payload}
	return c.doJSON(ctx, http.MethodPut, "/v1/wallets/"+url.PathEscape(walletID)+"/data", body, nil)
}

// PullWalletData implements WalletRepository.
func (c *Client) PullWalletData(ctx context.Context, walletID string) (*domain.Snapshot, error) {
	var resp struct {
		Payload domain.Snapshot `json:"payload"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/wallets/"+url.PathEscape(walletID)+"/data", nil, &resp); err != nil {
		return nil, err
	}
	resp.Payload.Normalize()
	return &resp.Payload, nil
}

// ListWallets implements WalletRepository.
func (c *Client) ListWallets(ctx context.Context, ownerID string) ([]domain.Wallet, error) {
	var resp struct {
		Wallets []domain.Wallet `json:"wallets"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/wallets?member="+url.QueryEscape(ownerID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Wallets, nil
}

// CreateWallet implements WalletRepository.
func (c *Client) CreateWallet(ctx context.Context, ownerID, name, currencyCode string) (*domain.Wallet, error) {
	body := struct {
		OwnerID      string `json:"ownerID"`
		Name         string `json:"name"`
		CurrencyCode string `json:"currencyCode"`
	}{OwnerID: ownerID, Name: name, CurrencyCode: currencyCode}
	var wallet domain.Wallet
	if err := c.doJSON(ctx, http.MethodPost, "/v1/wallets", body, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

// DeleteWallet implements WalletRepository.
func (c *Client) DeleteWallet(ctx context.Context, walletID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/v1/wallets/"+url.PathEscape(walletID), nil, nil)
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// Login implements AuthProvider, capturing the session token for subsequent
// calls.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var sess domain.Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/login", credentialsBody{Email: email, Password: password}, &sess); err != nil {
		return nil, err
	}
	c.setToken(sess.AccessToken)
	return &sess, nil
}

// Signup implements AuthProvider.
func (c *Client) Signup(ctx context.Context, email, password, name string) (*domain.Session, error) {
	var sess domain.Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/signup", credentialsBody{Email: email, Password: password, Name: name}, &sess); err != nil {
		return nil, err
	}
	c.setToken(sess.AccessToken)
	return &sess, nil
}

// ResetPassword implements AuthProvider.
func (c *Client) ResetPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/reset-password", struct {
		Email string `json:"email"`
	}{Email: email}, nil)
}

// GetSession implements AuthProvider.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	var sess domain.Session
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/session", nil, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
