// Package nanokvm is a thin HTTP client for the Sipeed NanoKVM web
// API. It owns the authenticated session (login token cookie) and
// exposes one method per status group and per command; callers are
// responsible for serialising access to the device.
package nanokvm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/config"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

const (
	requestTimeout = 8 * time.Second
	tokenCookie    = "nano-kvm-token"
)

type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	logger     *zap.Logger
	token      string
}

func New(cfg *config.DeviceConfig) *Client {
	return &Client{
		baseURL:  NormalizeHost(cfg.Host),
		username: cfg.Username,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: zap.L(),
	}
}

// NormalizeHost ensures the configured host carries a scheme and the
// /api/ prefix the device serves its JSON endpoints under.
func NormalizeHost(host string) string {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	if strings.HasSuffix(host, "/api/") {
		return host
	}
	if strings.HasSuffix(host, "/") {
		return host + "api/"
	}
	return host + "/api/"
}

// NormalizeMDNS ensures an mDNS host name ends with a dot so it can be
// used as a stable unique id.
func NormalizeMDNS(mdns string) string {
	if !strings.HasSuffix(mdns, ".") {
		return mdns + "."
	}
	return mdns
}

// envelope is the device's JSON response wrapper. A non-zero code is a
// device-level failure even when the HTTP status is 200.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

const codeAuthFailure = -2

// Authenticate logs into the device and stores the session token.
func (c *Client) Authenticate(ctx context.Context) error {
	payload, err := json.Marshal(loginRequest{
		Username: c.username,
		Password: c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"auth/login", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDeviceUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDeviceUnreachable, err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: device rejected credentials for %q", model.ErrAuthenticationFailed, c.username)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: login status %d", model.ErrDeviceUnreachable, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: decode login: %v", model.ErrDeviceUnreachable, err)
	}
	if env.Code == codeAuthFailure {
		return fmt.Errorf("%w: %s", model.ErrAuthenticationFailed, env.Msg)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w: login code %d: %s", model.ErrDeviceUnreachable, env.Code, env.Msg)
	}

	var res loginResponse
	if err := json.Unmarshal(env.Data, &res); err != nil {
		return fmt.Errorf("%w: decode login token: %v", model.ErrDeviceUnreachable, err)
	}
	c.token = res.Token
	c.logger.Debug("authenticated against device", zap.String("base_url", c.baseURL))
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPost, path, in, out)
}

// call performs one API request, logging in first if no token is held
// and retrying once after a fresh login if the session has expired.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	if c.token == "" {
		if err := c.Authenticate(ctx); err != nil {
			return err
		}
	}

	retried := false
	for {
		err := c.doOnce(ctx, method, path, in, out)
		if err == nil {
			return nil
		}
		if errorsIsAuth(err) && !retried {
			retried = true
			c.token = ""
			if authErr := c.Authenticate(ctx); authErr != nil {
				return authErr
			}
			continue
		}
		return err
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, in, out any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build url %q: %w", path, err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: tokenCookie, Value: c.token})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", model.ErrDeviceUnreachable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", model.ErrDeviceUnreachable, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s", model.ErrAuthenticationFailed, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s status %d", model.ErrDeviceUnreachable, path, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: decode %s: %v", model.ErrDeviceUnreachable, path, err)
	}
	if env.Code == codeAuthFailure {
		return fmt.Errorf("%w: %s", model.ErrAuthenticationFailed, env.Msg)
	}
	if env.Code != 0 {
		return fmt.Errorf("%w: %s code %d: %s", model.ErrDeviceUnreachable, path, env.Code, env.Msg)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode %s data: %v", model.ErrDeviceUnreachable, path, err)
	}
	return nil
}
