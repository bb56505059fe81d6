// Package presenceclient delivers heartbeats from an activity monitor to the
// presence API over HTTP.
package presenceclient

import (
	"agenthelper/cmd/internal/contract"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

const (
	HeartbeatPath = "/api/presence/heartbeat"
	BeaconPath    = "/api/presence/beacon"

	defaultTimeout = 10 * time.Second
	beaconTimeout  = 5 * time.Second
	maxBeacons     = 4
)

var ErrRejected = errors.New("heartbeat rejected")

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	beacons  chan struct{}
	inFlight sync.WaitGroup
}

type Option func(*Client)

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		beacons:    make(chan struct{}, maxBeacons),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send posts the heartbeat and decodes the server verdict. Any non 2xx
// answer is an error so the caller can retry it.
func (c *Client) Send(ctx context.Context, payload *contract.HeartbeatRequest) (*contract.HeartbeatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode heartbeat: %w", err)
	}

	req, err := c.newRequest(ctx, HeartbeatPath, payload.UserID, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var hb contract.HeartbeatResponse
	if err = json.Unmarshal(data, &hb); err != nil {
		return nil, fmt.Errorf("failed to decode heartbeat response: %w", err)
	}
	return &hb, nil
}

// SendBeacon queues a fire-and-forget delivery that outlives the caller. It
// returns false when too many beacons are already in flight.
func (c *Client) SendBeacon(payload *contract.HeartbeatRequest) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to encode beacon: %v", err)
		return false
	}

	select {
	case c.beacons <- struct{}{}:
	default:
		return false
	}

	c.inFlight.Add(1)
	go func() {
		defer func() {
			<-c.beacons
			c.inFlight.Done()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()

		req, err := c.newRequest(ctx, BeaconPath, payload.UserID, body)
		if err != nil {
			log.Warnf("failed to build beacon request: %v", err)
			return
		}
		// beacons are sent as plain text, the server reads any content type
		req.Header.Set(echo.HeaderContentType, echo.MIMETextPlainCharsetUTF8)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Warnf("beacon for user %d failed: %v", payload.UserID, err)
			return
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return true
}

// Flush waits for queued beacons, at most for the given timeout. It reports
// whether every beacon finished.
func (c *Client) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Client) newRequest(ctx context.Context, path string, userID int64, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if userID > 0 {
		req.Header.Set(contract.HeaderUserID, strconv.FormatInt(userID, 10))
	}
	if c.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.token)
	}
	return req, nil
}
