package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/ledgermate/ledgermate/internal/apperrors"
	"github.com/ledgermate/ledgermate/internal/core/domain"
	portsrepo "github.com/ledgermate/ledgermate/internal/core/ports/repositories"
)

// wireMessage is the envelope the realtime channel speaks. Change payloads
// are validated here, at the boundary, so the engine only ever sees
// well-formed tagged events.
type wireMessage struct {
	Type  string             `json:"type"` // subscribed | change
	Scope domain.ChangeScope `json:"scope"`
	Data  json.RawMessage    `json:"data,omitempty"`
}

// subscription is one open websocket channel.
type subscription struct {
	conn      *websocket.Conn
	cancel    context.CancelFunc
	closeOnce sync.Once
}

var _ portsrepo.Subscription = (*subscription)(nil)

// Close implements Subscription. Safe to call more than once.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.conn.Close(websocket.StatusNormalClosure, "unsubscribe")
	})
	return nil
}

// Subscribe implements RealtimeSubscriber: it dials the realtime endpoint
// for the given scope, waits for the server's subscription confirmation and
// then dispatches validated change events to onChange from a read loop.
func (c *Client) Subscribe(ctx context.Context, scope domain.ChangeScope, scopeID string, onChange func(domain.ChangeEvent)) (portsrepo.Subscription, error) {
	endpoint := fmt.Sprintf("%s/v1/realtime?scope=%s&id=%s",
		c.realtimeURL, url.QueryEscape(string(scope)), url.QueryEscape(scopeID))

	conn, _, err := websocket.Dial(ctx, endpoint, &websocket.DialOptions{
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: realtime dial: %v", apperrors.ErrTransport, err)
	}

	// The server confirms the subscription before any change flows.
	var confirm wireMessage
	if err := readMessage(ctx, conn, &confirm); err != nil {
		_ = conn.Close(websocket.StatusProtocolError, "no confirmation")
		return nil, fmt.Errorf("%w: realtime confirmation: %v", apperrors.ErrTransport, err)
	}
	if confirm.Type != "subscribed" {
		_ = conn.Close(websocket.StatusProtocolError, "unexpected message")
		return nil, fmt.Errorf("%w: expected subscription confirmation, got %q", apperrors.ErrTransport, confirm.Type)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{conn: conn, cancel: cancel}

	go c.readLoop(readCtx, conn, scope, onChange)

	return sub, nil
}

func readMessage(ctx context.Context, conn *websocket.Conn, out *wireMessage) error {
	_, raw, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// readLoop dispatches inbound changes until the connection drops or the
// subscription is closed.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, scope domain.ChangeScope, onChange func(domain.ChangeEvent)) {
	for {
		var msg wireMessage
		if err := readMessage(ctx, conn, &msg); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("Realtime channel closed", slog.String("scope", string(scope)), slog.String("error", err.Error()))
			}
			return
		}
		if msg.Type != "change" {
			continue
		}

		ev, err := decodeChange(scope, msg)
		if err != nil {
			c.logger.Warn("Dropping malformed realtime event", slog.String("scope", string(scope)), slog.String("error", err.Error()))
			continue
		}
		onChange(ev)
	}
}

// decodeChange validates a change payload against its channel scope.
func decodeChange(scope domain.ChangeScope, msg wireMessage) (domain.ChangeEvent, error) {
	if msg.Scope != "" && msg.Scope != scope {
		return nil, fmt.Errorf("scope mismatch: got %q", msg.Scope)
	}
	switch scope {
	case domain.ScopeWallet:
		var ev domain.WalletChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, err
		}
		if ev.WalletID == "" {
			return nil, fmt.Errorf("wallet change without wallet id")
		}
		return ev, nil
	case domain.ScopeUserBackup:
		var ev domain.BackupChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil, err
		}
		if ev.OwnerID == "" {
			return nil, fmt.Errorf("backup change without owner id")
		}
		return ev, nil
	}
	return nil, fmt.Errorf("unknown scope %q", scope)
}
