package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dropvault-dev/dropvault/internal/cli/api"
	"github.com/dropvault-dev/dropvault/internal/config"
	"github.com/dropvault-dev/dropvault/internal/models"
)

type testServer struct {
	*Server
	baseURL string
}

func newTestServer(t *testing.T) (*testServer, *api.Client) {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			URL: filepath.Join(t.TempDir(), "test.sqlite"),
		},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret",
		},
	}

	srv, err := New(cfg, zerolog.Nop())
	require.NoError(t, err)

	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	return &testServer{Server: srv, baseURL: httpServer.URL}, api.New(httpServer.URL)
}

// registerUser signs up an account through the HTTP surface and returns
// the verification token created for it.
func registerUser(t *testing.T, srv *testServer, email string) string {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
	})
	require.NoError(t, err)

	resp, err := http.Post(srv.baseURL+"/api/register/", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token models.VerificationToken
	require.NoError(t, srv.GetDB().Where("email = ?", email).First(&token).Error)
	return token.Token
}

func TestRegisterVerifyLogin(t *testing.T) {
	srv, client := newTestServer(t)

	linkToken := registerUser(t, srv, "new@example.com")

	// Login before verification is refused and routes the client into
	// the verification flow
	login, err := client.Login("new@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, login.OK)
	assert.True(t, login.RequiresVerification)
	assert.Equal(t, "new@example.com", login.Email)
	assert.Equal(t, "Please verify your email first", login.Message)

	// Redeeming the link verifies the account and signs the user in
	verified, err := client.VerifyEmailToken(linkToken)
	require.NoError(t, err)
	assert.True(t, verified.OK)
	assert.NotEmpty(t, verified.Token)
	assert.NotEmpty(t, verified.SessionID)
	require.NotNil(t, verified.User)
	assert.Equal(t, "new@example.com", verified.User.Email)
	assert.Equal(t, "Email verified successfully!", verified.Message)

	// Afterwards a plain login works
	login, err = client.Login("new@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, login.OK)
	assert.NotEmpty(t, login.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv, client := newTestServer(t)
	registerUser(t, srv, "someone@example.com")

	result, err := client.Login("someone@example.com", "wrong-password")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Invalid email or password", result.Message)

	result, err = client.Login("nobody@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Invalid email or password", result.Message)
}

func TestLoginWithGoogle(t *testing.T) {
	_, client := newTestServer(t)

	result, err := client.LoginWithGoogle("any-code")
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.NotEmpty(t, result.Token)
	require.NotNil(t, result.User)
	assert.Equal(t, "google-user@example.com", result.User.Email)
}

func TestVerifyEmailToken_NoToken(t *testing.T) {
	_, client := newTestServer(t)

	result, err := client.VerifyEmailToken("")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.False(t, result.Expired)
}

func TestVerifyEmailToken_Unknown(t *testing.T) {
	_, client := newTestServer(t)

	result, err := client.VerifyEmailToken("does-not-exist")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.False(t, result.Expired)
	assert.Equal(t, "Invalid verification link.", result.Message)
}

func TestVerifyEmailToken_Expired(t *testing.T) {
	srv, client := newTestServer(t)
	linkToken := registerUser(t, srv, "late@example.com")

	require.NoError(t, srv.GetDB().
		Model(&models.VerificationToken{}).
		Where("token = ?", linkToken).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	result, err := client.VerifyEmailToken(linkToken)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.True(t, result.Expired)
	assert.Equal(t, "late@example.com", result.Email)
	assert.Equal(t, "Verification link has expired.", result.Message)
}

func TestVerifyEmailToken_ConsumedOnce(t *testing.T) {
	srv, client := newTestServer(t)
	linkToken := registerUser(t, srv, "twice@example.com")

	first, err := client.VerifyEmailToken(linkToken)
	require.NoError(t, err)
	require.True(t, first.OK)

	// The same link cannot be redeemed again
	second, err := client.VerifyEmailToken(linkToken)
	require.NoError(t, err)
	assert.False(t, second.OK)
	assert.False(t, second.Expired)
	assert.Equal(t, "This verification link was already used.", second.Message)
}

func TestResendVerification(t *testing.T) {
	srv, client := newTestServer(t)
	linkToken := registerUser(t, srv, "resend@example.com")

	// The registration token was just created: rate-limited
	result, err := client.ResendVerification("resend@example.com")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Contains(t, result.Message, "sent recently")

	// Backdate the outstanding token past the interval
	require.NoError(t, srv.GetDB().
		Model(&models.VerificationToken{}).
		Where("token = ?", linkToken).
		Update("created_at", time.Now().Add(-2*resendInterval)).Error)

	result, err = client.ResendVerification("resend@example.com")
	require.NoError(t, err)
	assert.True(t, result.OK)

	// The old token was replaced, not kept alongside the new one
	err = srv.GetDB().Where("token = ?", linkToken).First(&models.VerificationToken{}).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestResendVerification_UnknownEmail(t *testing.T) {
	_, client := newTestServer(t)

	result, err := client.ResendVerification("nobody@example.com")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "No account found for this email", result.Message)
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	srv, client := newTestServer(t)
	linkToken := registerUser(t, srv, "done@example.com")

	verified, err := client.VerifyEmailToken(linkToken)
	require.NoError(t, err)
	require.True(t, verified.OK)

	result, err := client.ResendVerification("done@example.com")
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, "Email is already verified", result.Message)
}

func TestAuthedEndpoints(t *testing.T) {
	srv, client := newTestServer(t)
	linkToken := registerUser(t, srv, "authed@example.com")

	verified, err := client.VerifyEmailToken(linkToken)
	require.NoError(t, err)
	require.True(t, verified.OK)
	token := verified.Token

	check, err := client.CheckToken(token)
	require.NoError(t, err)
	assert.True(t, check.Authenticated)
	require.NotNil(t, check.User)
	assert.Equal(t, "authed@example.com", check.User.Email)

	user, err := client.Profile(token)
	require.NoError(t, err)
	assert.Equal(t, "authed@example.com", user.Email)
	assert.Equal(t, "Test User", user.Name)

	require.NoError(t, client.Logout(token))
}

func TestAuthedEndpoints_RejectBadToken(t *testing.T) {
	_, client := newTestServer(t)

	check, err := client.CheckToken("not-a-jwt")
	require.NoError(t, err)
	assert.False(t, check.Authenticated)

	_, err = client.Profile("not-a-jwt")
	assert.Error(t, err)

	assert.Error(t, client.Logout("not-a-jwt"))
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.baseURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "online", body["status"])
}
