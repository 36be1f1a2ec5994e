package session

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dropvault-dev/dropvault/internal/cli/api"
	"github.com/dropvault-dev/dropvault/internal/cli/credstore"
)

// Status is the settledness of the session state machine.
type Status int

const (
	StatusInitializing Status = iota
	StatusUnauthenticated
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Session is the current authentication state of the running client.
// Status is Authenticated only when both token and user are present and
// the last server check did not fail.
type Session struct {
	Status Status
	Token  string
	User   *api.User
}

// LoginOutcome is what a login attempt reports back to the caller.
// RequiresVerification directs the caller into the pending-verification
// flow with Email instead of treating the attempt as a plain failure.
type LoginOutcome struct {
	OK                   bool
	RequiresVerification bool
	Email                string
	Message              string
}

const networkErrorMessage = "Network error. Please try again."

// Controller owns the single Session for this client process. The
// credential store is a durable mirror of it: stored values are never
// trusted as authenticated until the server confirms them, and on any
// disagreement the controller's decision is written back to the store.
//
// Transitions run under the mutex; the network exchanges themselves run
// outside it, so Current and IsAuthenticated never block behind an
// in-flight request. The network phases of overlapping calls are not
// serialized: two concurrent logins race and the last commit wins.
type Controller struct {
	store  credstore.Store
	client *api.Client
	log    zerolog.Logger

	mu      sync.Mutex
	session Session
	subs    map[int]func(Session)
	nextSub int
}

// New creates a controller in the Initializing state. Call Initialize to
// settle it.
func New(store credstore.Store, client *api.Client, log zerolog.Logger) *Controller {
	return &Controller{
		store:   store,
		client:  client,
		log:     log,
		session: Session{Status: StatusInitializing},
		subs:    make(map[int]func(Session)),
	}
}

// Current returns a copy of the session value.
func (c *Controller) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// IsAuthenticated is the only authoritative "is the caller logged in"
// predicate; callers must not derive it from token presence themselves.
func (c *Controller) IsAuthenticated() bool {
	return c.Current().Status == StatusAuthenticated
}

// Subscribe registers an observer called with a copy of the session
// after every transition. The returned function cancels the
// subscription.
func (c *Controller) Subscribe(fn func(Session)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// setSession replaces the session and notifies observers. Callers must
// hold the lock; observers run outside it.
func (c *Controller) setSession(s Session) {
	c.session = s
	subs := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}

	go func() {
		for _, fn := range subs {
			fn(s)
		}
	}()
}

// Initialize settles the session from the credential store. A stored
// token is hydrated optimistically and then confirmed with the server;
// an unconfirmable token is treated as invalid rather than left in a
// trusted-but-stale state.
func (c *Controller) Initialize() {
	c.mu.Lock()

	token, ok := c.store.Get(credstore.KeyToken)
	if !ok || token == "" {
		c.setSession(Session{Status: StatusUnauthenticated})
		c.mu.Unlock()
		return
	}

	// Optimistic hydration: status stays Initializing until the check
	// settles it.
	session := Session{Status: StatusInitializing, Token: token}
	if raw, ok := c.store.Get(credstore.KeyUser); ok {
		var user api.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			c.log.Warn().Err(err).Msg("Corrupt stored profile, discarding")
			if err := c.store.Remove(credstore.KeyUser); err != nil {
				c.log.Warn().Err(err).Msg("Failed to remove stored profile")
			}
		} else {
			session.User = &user
		}
	}
	c.session = session
	c.mu.Unlock()

	result, err := c.client.CheckToken(token)
	if err != nil || !result.Authenticated {
		if err != nil {
			c.log.Warn().Err(err).Msg("Token check failed, clearing session")
		}
		c.mu.Lock()
		c.clearSession()
		c.mu.Unlock()
		return
	}

	user := result.User
	if user == nil {
		user = session.User
	}
	if user == nil {
		// Valid token but no profile on hand; fetch it so Authenticated
		// always carries a user.
		if fetched, err := c.client.Profile(token); err == nil {
			user = fetched
		} else {
			c.log.Warn().Err(err).Msg("Failed to fetch profile")
		}
	}

	c.mu.Lock()
	c.commit(token, "", user)
	c.mu.Unlock()
}

// Login exchanges credentials for a session. On success the token and
// profile are written through the store before observers see the
// transition.
func (c *Controller) Login(email, password string) LoginOutcome {
	result, err := c.client.Login(email, password)
	if err != nil {
		c.log.Warn().Err(err).Msg("Login request failed")
		return LoginOutcome{Message: networkErrorMessage}
	}

	if result.OK {
		c.Commit(result.Token, result.SessionID, result.User)
		return LoginOutcome{OK: true}
	}

	if result.RequiresVerification {
		return LoginOutcome{
			RequiresVerification: true,
			Email:                result.Email,
			Message:              result.Message,
		}
	}

	return LoginOutcome{Message: result.Message}
}

// LoginWithGoogle exchanges an OAuth authorization code for a session.
// Same commit contract as Login's success path; the provider has already
// verified the email.
func (c *Controller) LoginWithGoogle(code string) LoginOutcome {
	result, err := c.client.LoginWithGoogle(code)
	if err != nil {
		c.log.Warn().Err(err).Msg("Google login request failed")
		return LoginOutcome{Message: networkErrorMessage}
	}

	if result.OK {
		c.Commit(result.Token, result.SessionID, result.User)
		return LoginOutcome{OK: true}
	}

	return LoginOutcome{Message: result.Message}
}

// Logout tears down the session. The remote call is best-effort; local
// teardown happens regardless so the user is never stuck signed in by a
// network failure. Safe to call when already unauthenticated.
func (c *Controller) Logout() {
	c.mu.Lock()
	token := c.session.Token
	c.mu.Unlock()

	if token == "" {
		// Not yet initialized; a stored token should still be revoked.
		token, _ = c.store.Get(credstore.KeyToken)
	}
	if token != "" {
		if err := c.client.Logout(token); err != nil {
			c.log.Warn().Err(err).Msg("Remote logout failed, clearing local session anyway")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Remove(credstore.KeyPendingEmail); err != nil {
		c.log.Warn().Err(err).Msg("Failed to clear pending verification email")
	}
	c.clearSession()
}

// Commit stores a freshly issued token and profile and transitions to
// Authenticated. This is the single commit path shared by login, Google
// login, and a successful email verification.
func (c *Controller) Commit(token, sessionID string, user *api.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commit(token, sessionID, user)
}

func (c *Controller) commit(token, sessionID string, user *api.User) {
	if err := c.store.Set(credstore.KeyToken, token); err != nil {
		c.log.Warn().Err(err).Msg("Failed to persist token")
	}
	if sessionID != "" {
		if err := c.store.Set(credstore.KeySessionID, sessionID); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist session id")
		}
	}
	if user != nil {
		if raw, err := json.Marshal(user); err == nil {
			if err := c.store.Set(credstore.KeyUser, string(raw)); err != nil {
				c.log.Warn().Err(err).Msg("Failed to persist profile")
			}
		}
	}

	c.setSession(Session{Status: StatusAuthenticated, Token: token, User: user})
}

func (c *Controller) clearSession() {
	for _, key := range []string{credstore.KeyToken, credstore.KeyUser, credstore.KeySessionID} {
		if err := c.store.Remove(key); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to clear stored credential")
		}
	}
	c.setSession(Session{Status: StatusUnauthenticated})
}
