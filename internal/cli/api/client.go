package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client represents an HTTP client for the DropVault API. Remote
// rejections (bad credentials, expired links) are reported through the
// result structs; returned errors mean the exchange itself failed
// (connectivity, malformed response).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// User represents the profile record returned by the API. The server
// owns its shape; the ID is numeric in production and a ULID string on
// the dev server, so it is carried opaquely.
type User struct {
	ID    json.RawMessage `json:"id"`
	Email string          `json:"email"`
	Name  string          `json:"name"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult represents the outcome of a login exchange
type LoginResult struct {
	OK                   bool
	Token                string
	SessionID            string
	User                 *User
	RequiresVerification bool
	Email                string
	Message              string
}

type loginResponse struct {
	Success              bool   `json:"success"`
	Token                string `json:"token"`
	SessionID            string `json:"sessionid"`
	User                 *User  `json:"user"`
	RequiresVerification bool   `json:"requires_verification"`
	Email                string `json:"email"`
	Error                string `json:"error"`
}

// Login exchanges credentials for a token. A 403 carrying
// requires_verification is a distinct outcome from a generic rejection.
func (c *Client) Login(email, password string) (*LoginResult, error) {
	body, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/api/login/", c.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var data loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && data.Success {
		return &LoginResult{
			OK:        true,
			Token:     data.Token,
			SessionID: data.SessionID,
			User:      data.User,
		}, nil
	}

	if resp.StatusCode == http.StatusForbidden && data.RequiresVerification {
		return &LoginResult{
			RequiresVerification: true,
			Email:                data.Email,
			Message:              messageOr(data.Error, "Please verify your email first"),
		}, nil
	}

	return &LoginResult{Message: messageOr(data.Error, "Login failed")}, nil
}

// GoogleLoginRequest represents the OAuth code exchange request body
type GoogleLoginRequest struct {
	Code string `json:"code"`
}

// LoginWithGoogle exchanges a Google OAuth authorization code for a
// token. The provider has already verified the email, so there is no
// verification-required branch.
func (c *Client) LoginWithGoogle(code string) (*LoginResult, error) {
	body, err := json.Marshal(GoogleLoginRequest{Code: code})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/api/auth/google/", c.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var data loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && data.Success {
		return &LoginResult{
			OK:        true,
			Token:     data.Token,
			SessionID: data.SessionID,
			User:      data.User,
		}, nil
	}

	return &LoginResult{Message: messageOr(data.Error, "Google login failed")}, nil
}

// Logout invalidates the token on the server. Best-effort: callers tear
// down local state whether or not this succeeds.
func (c *Client) Logout(token string) error {
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/logout/", c.baseURL), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", tokenHeader(token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("logout failed (status %d): %s", resp.StatusCode, string(body))
	}

	return nil
}

type profileResponse struct {
	User *User `json:"user"`
}

// Profile fetches the profile of the token's owner.
func (c *Client) Profile(token string) (*User, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/profile/", c.baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", tokenHeader(token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to fetch profile (status %d): %s", resp.StatusCode, string(body))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// The service wraps the profile in {user: ...}; older deployments
	// return it bare.
	var wrapped profileResponse
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}

	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &user, nil
}

// CheckResult represents the outcome of a token validity check
type CheckResult struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user"`
}

// CheckToken asks the server whether the token is still valid. A
// non-200 answer means not authenticated; a transport failure is an
// error and the caller decides what to trust.
func (c *Client) CheckToken(token string) (*CheckResult, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/api/auth/check/", c.baseURL), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", tokenHeader(token))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &CheckResult{}, nil
	}

	var result CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// VerifyResult represents the three-way outcome of a verification-link
// exchange: success, expired (recoverable by resending), or failure.
type VerifyResult struct {
	OK        bool
	Token     string
	SessionID string
	User      *User
	Expired   bool
	Email     string
	Message   string
}

type verifyResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Token     string `json:"token"`
	SessionID string `json:"sessionid"`
	User      *User  `json:"user"`
	Expired   bool   `json:"expired"`
	Email     string `json:"email"`
	Error     string `json:"error"`
}

// VerifyEmailToken redeems an email verification link token.
func (c *Client) VerifyEmailToken(token string) (*VerifyResult, error) {
	resp, err := c.httpClient.Get(fmt.Sprintf(
		"%s/api/verify-email-token/?token=%s", c.baseURL, url.QueryEscape(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var data verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if data.Success {
		return &VerifyResult{
			OK:        true,
			Token:     data.Token,
			SessionID: data.SessionID,
			User:      data.User,
			Message:   messageOr(data.Message, "Email verified successfully!"),
		}, nil
	}

	if data.Expired {
		return &VerifyResult{
			Expired: true,
			Email:   data.Email,
			Message: messageOr(data.Error, "Verification link has expired."),
		}, nil
	}

	return &VerifyResult{Message: messageOr(data.Error, "Verification failed.")}, nil
}

// ResendRequest represents the resend-verification request body
type ResendRequest struct {
	Email string `json:"email"`
}

// ResendResult represents the outcome of a resend request
type ResendResult struct {
	OK      bool
	Message string
}

// ResendVerification asks the server to send a fresh verification email.
func (c *Client) ResendVerification(email string) (*ResendResult, error) {
	body, err := json.Marshal(ResendRequest{Email: email})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.httpClient.Post(
		fmt.Sprintf("%s/api/resend-verification/", c.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var data struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode == http.StatusOK && data.Success {
		return &ResendResult{OK: true}, nil
	}

	return &ResendResult{Message: messageOr(data.Error, "Failed to resend email")}, nil
}

// tokenHeader formats the Authorization header. The service uses token
// auth, not the Bearer scheme.
func tokenHeader(token string) string {
	return fmt.Sprintf("Token %s", token)
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}
