// Package ipo proxies the CDSC IPO-result checker: company listing, captcha
// fetch with session correlation, and the result check itself. Responses are
// opaque to this service and relayed verbatim.
package ipo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the CDSC result service.
	DefaultBaseURL = "https://iporesult.cdsc.com.np"

	requestTimeout = 20 * time.Second
)

// ErrSessionExpired means the captcha session is unknown or timed out; the
// client must reload the captcha.
var ErrSessionExpired = errors.New("session expired, reload captcha")

// ErrCheckRejected wraps an upstream rejection of the result check, usually
// a wrong captcha. The session is already invalidated when it is returned.
var ErrCheckRejected = errors.New("invalid captcha or network error")

// CheckRequest is one result lookup for one BOID.
type CheckRequest struct {
	SessionID   string `json:"id"`
	BOID        string `json:"boid"`
	CompanyID   int    `json:"companyId"`
	CaptchaText string `json:"captcha"`
}

// CheckResult carries the upstream's message. It doubles as the
// human-readable result and the value persisted as the BOID's status.
type CheckResult struct {
	Message string `json:"message"`
}

// Client talks to the CDSC checker on behalf of browser clients that cannot
// call it directly.
type Client struct {
	baseURL  string
	client   *http.Client
	sessions *SessionCache
}

// NewClient creates a proxy client. sessions carries the captcha cookies
// between the captcha fetch and the check call.
func NewClient(baseURL string, sessions *SessionCache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: requestTimeout},
		sessions: sessions,
	}
}

// Companies fetches the list of checkable IPOs, relayed as raw JSON.
func (c *Client) Companies(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/result/company/all", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch companies: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read companies: %w", err)
	}
	return json.RawMessage(body), nil
}

// Captcha fetches a fresh captcha image and binds the upstream session
// cookies to sessionID. The image is returned as a data URI.
func (c *Client) Captcha(ctx context.Context, sessionID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/result/captcha/image/initial", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch captcha: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read captcha: %w", err)
	}

	c.sessions.Put(sessionID, resp.Header.Values("Set-Cookie"))

	// The checker usually sends {"image": "<base64>"}; older responses were
	// raw binary.
	var payload struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Image != "" {
		return payload.Image, nil
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(body), nil
}

// Check performs the result lookup using the captcha session. On upstream
// rejection the session is dropped so the client is forced to a new captcha.
func (c *Client) Check(ctx context.Context, reqData CheckRequest) (CheckResult, error) {
	cookies, ok := c.sessions.Get(reqData.SessionID)
	if !ok {
		return CheckResult{}, ErrSessionExpired
	}

	payload, err := json.Marshal(map[string]any{
		"boid":           reqData.BOID,
		"companyShareId": reqData.CompanyID,
		"userCaptcha":    reqData.CaptchaText,
	})
	if err != nil {
		return CheckResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/result/result/check", bytes.NewReader(payload))
	if err != nil {
		return CheckResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.Header.Add("Cookie", cookie)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.sessions.Delete(reqData.SessionID)
		return CheckResult{}, fmt.Errorf("%w: %v", ErrCheckRejected, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.sessions.Delete(reqData.SessionID)
		return CheckResult{}, fmt.Errorf("%w: %v", ErrCheckRejected, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.sessions.Delete(reqData.SessionID)
		return CheckResult{}, fmt.Errorf("%w: status %d", ErrCheckRejected, resp.StatusCode)
	}

	var result CheckResult
	if err := json.Unmarshal(body, &result); err != nil {
		return CheckResult{}, fmt.Errorf("decode check result: %w", err)
	}
	return result, nil
}
