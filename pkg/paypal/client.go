package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/renpay/renpay-backend/pkg/config"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"

	// refresh the cached token a minute before PayPal expires it
	tokenExpirySlack = time.Minute
)

var (
	errCredentialsRequired = errors.New("paypal client id and secret are required")
	errLoggerRequired      = errors.New("paypal logger is required")
)

// Client wraps the PayPal REST API with centralized auth, logging, and error
// mapping. Access tokens are cached and refreshed lazily under a mutex.
type Client struct {
	cfg        config.PayPalConfig
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient initializes the PayPal wrapper and validates the credentials.
func NewClient(cfg config.PayPalConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errCredentialsRequired
	}

	baseURL := sandboxBaseURL
	if cfg.IsLive() {
		baseURL = liveBaseURL
	}

	return &Client{
		cfg:        cfg,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logg,
	}, nil
}

// Environment reports the normalized PayPal environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.cfg.Environment()
}

// ClientID exposes the public client id for browser SDK bootstrap.
func (c *Client) ClientID() string {
	if c == nil {
		return ""
	}
	return c.cfg.ClientID
}

// PlanID returns the configured PayPal plan id for the given internal plan
// name, or empty when unmapped.
func (c *Client) PlanID(plan string) string {
	if c == nil {
		return ""
	}
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case "monthly":
		return c.cfg.PlanIDMonthly
	case "annual":
		return c.cfg.PlanIDAnnual
	default:
		return ""
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paypal token request")
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "requesting paypal access token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gatewayError(resp, "paypal token request failed")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding paypal token response")
	}
	if payload.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "paypal returned an empty access token")
	}

	c.token = payload.AccessToken
	expiry := time.Duration(payload.ExpiresIn) * time.Second
	if expiry > tokenExpirySlack {
		expiry -= tokenExpirySlack
	}
	c.tokenExpiry = time.Now().Add(expiry)
	return c.token, nil
}

// do issues an authenticated JSON request against the PayPal API and decodes
// the response into out when the status code matches one of wantStatus.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, in, out any, wantStatus ...int) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paypal request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paypal request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("paypal %s %s", method, path))
	}
	defer resp.Body.Close()

	accepted := false
	for _, status := range wantStatus {
		if resp.StatusCode == status {
			accepted = true
			break
		}
	}
	if !accepted {
		return gatewayError(resp, fmt.Sprintf("paypal %s %s failed", method, path))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "decoding paypal response")
	}
	return nil
}

func (c *Client) log(ctx context.Context, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"operation": op}
	for k, v := range fields {
		logFields[k] = v
	}
	c.logger.Info(c.logger.WithFields(ctx, logFields), "paypal "+op)
}

// gatewayError maps a non-2xx PayPal response into a domain error carrying
// the upstream status and (truncated) body for the response envelope.
func gatewayError(resp *http.Response, msg string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	details := map[string]any{"upstreamStatus": resp.StatusCode}

	var payload map[string]any
	if json.Unmarshal(raw, &payload) == nil && len(payload) > 0 {
		details["upstream"] = payload
	} else if len(raw) > 0 {
		details["upstream"] = string(raw)
	}

	return pkgerrors.New(pkgerrors.CodeGateway, msg).WithDetails(details)
}

func escapePath(segment string) string {
	return url.PathEscape(segment)
}
