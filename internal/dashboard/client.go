// Package dashboard is the terminal viewer for the relay: it joins the
// broadcast channel as a member, renders incoming telemetry and photo
// events, and sends commands back through the same connection.
package dashboard

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shivamb241195ee/drone-cloud-railway/internal/hub"
)

// Client is a live viewer connection to the relay.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to the relay's websocket endpoint, presenting token.
// rawURL may be the plain http(s) base address of the relay.
func Dial(ctx context.Context, rawURL, token string) (*Client, error) {
	u, err := wsURL(rawURL, token)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial relay: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("dial relay: %w", err)
	}
	return &Client{conn: conn}, nil
}

// wsURL normalizes a relay address into the websocket endpoint URL with the
// token attached.
func wsURL(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse relay url %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("relay url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Next blocks for the next relay frame and classifies it.
func (c *Client) Next() (Event, error) {
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, hub.CloseAuthFailure) {
			return Event{}, fmt.Errorf("relay refused the token")
		}
		return Event{}, err
	}
	return Classify(frame, time.Now()), nil
}

// Send pushes one text frame through the relay. Every other member
// receives it; the sender gets no echo.
func (c *Client) Send(text string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

// SetReadDeadline bounds how long Next may block. A zero time clears
// the deadline.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// Close announces a normal closure and tears the connection down.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}
