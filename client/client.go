package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/totegamma/passgate"
	"github.com/totegamma/passgate/plate"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultUserAgent = "passgate-agent"

	// ReasonUnavailable is reported locally when the server cannot be reached.
	ReasonUnavailable = "SYSTEM_UNAVAILABLE"
)

// Client talks to the gate endpoints on behalf of an LPR agent.
type Client struct {
	client    *http.Client
	cache     *cache.Cache
	baseURL   string
	token     string
	userAgent string
}

type Options struct {
	Timeout   time.Duration
	UserAgent string
}

func New(baseURL, token string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	httpClient := http.Client{
		Timeout: timeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(time.Minute, 5*time.Minute),
		baseURL:   strings.TrimRight(baseURL, "/"),
		token:     token,
		userAgent: userAgent,
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-LPR-Token", c.token)
	return http.DefaultTransport.RoundTrip(req)
}

// Check asks the server whether the gate may open. Within the cooldown the
// server returned, repeated readings of the same plate at the same gate
// reuse the previous answer instead of calling again.
//
// On transport or server failure it returns a closed-gate response with
// ReasonUnavailable together with the error, so the agent can apply its
// own fallback.
func (c *Client) Check(ctx context.Context, req passgate.CheckRequest) (passgate.CheckResponse, error) {
	gateID := req.GateID
	if gateID == "" {
		gateID = passgate.DefaultGateID
	}
	cacheKey := "check:" + gateID + ":" + plate.Normalize(req.Plate)

	x, found := c.cache.Get(cacheKey)
	if found {
		return x.(passgate.CheckResponse), nil
	}

	var resp passgate.CheckResponse
	err := c.post(ctx, "/api/lpr/check", req, &resp)
	if err != nil {
		return passgate.CheckResponse{
			Allowed:   false,
			Reason:    ReasonUnavailable,
			PlateNorm: plate.Normalize(req.Plate),
		}, err
	}

	if resp.CooldownSeconds > 0 && resp.PlateNorm != "" && !strings.HasPrefix(resp.Reason, "SYSTEM_") {
		c.cache.Set(cacheKey, resp, time.Duration(resp.CooldownSeconds)*time.Second)
	}

	return resp, nil
}

// ReportEvent sends a physical gate event.
func (c *Client) ReportEvent(ctx context.Context, req passgate.EventRequest) (passgate.EventAck, error) {
	var ack passgate.EventAck
	err := c.post(ctx, "/api/lpr/event", req, &ack)
	if err != nil {
		return passgate.EventAck{}, err
	}
	return ack, nil
}

// Forget drops the cached answer for a plate, e.g. after OPEN_FAILED.
func (c *Client) Forget(gateID, plateText string) {
	if gateID == "" {
		gateID = passgate.DefaultGateID
	}
	c.cache.Delete("check:" + gateID + ":" + plate.Normalize(plateText))
}

func (c *Client) post(ctx context.Context, path string, body any, response any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %v", err)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		slog.WarnContext(
			ctx, "gate request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("module", "client"),
		)
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return fmt.Errorf("failed to decode response: %v", err)
	}

	return nil
}
