package verification

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dropvault-dev/dropvault/internal/cli/api"
	"github.com/dropvault-dev/dropvault/internal/cli/credstore"
	"github.com/dropvault-dev/dropvault/internal/cli/session"
)

// State of a single verification attempt.
type State int

const (
	StateVerifying State = iota
	StateSuccess
	StateExpired
	StateError
)

func (s State) String() string {
	switch s {
	case StateVerifying:
		return "verifying"
	case StateSuccess:
		return "success"
	case StateExpired:
		return "expired"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	// ResendCooldown is advisory UX throttling only; the server
	// rate-limits independently.
	ResendCooldown = 60 * time.Second

	// successRedirectDelay is how long the success state stays on
	// display before OnSuccess fires.
	successRedirectDelay = 2 * time.Second
)

// ErrCooldown is returned by Resend while the cooldown window from the
// previous resend is still open.
var ErrCooldown = errors.New("resend on cooldown")

// ErrNoPendingEmail is returned by Pending when no address is awaiting
// verification; callers redirect to registration.
var ErrNoPendingEmail = errors.New("no pending verification email")

// Flow is one run of the email confirmation flow: either redeeming a
// link token (Verifying -> Success/Expired/Error) or waiting in
// pending/resend mode. Create one per attempt and Abandon it when the
// caller navigates away.
type Flow struct {
	client   *api.Client
	sessions *session.Controller
	store    credstore.Store
	log      zerolog.Logger

	// OnSuccess, when set, runs once, redirectDelay after a successful
	// verification. A display delay, not a retry.
	OnSuccess func()

	// replaceable in tests
	now           func() time.Time
	redirectDelay time.Duration

	mu         sync.Mutex // guards the mutable fields below
	state      State
	message    string
	email      string
	abandoned  bool
	lastResend time.Time
}

// NewFlow creates a verification flow attempt.
func NewFlow(client *api.Client, sessions *session.Controller, store credstore.Store, log zerolog.Logger) *Flow {
	return &Flow{
		client:        client,
		sessions:      sessions,
		store:         store,
		log:           log,
		now:           time.Now,
		redirectDelay: successRedirectDelay,
		state:         StateVerifying,
	}
}

// Snapshot returns the current state, display message, and the email
// associated with an expired link (empty otherwise).
func (f *Flow) Snapshot() (State, string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.message, f.email
}

// settle records the attempt's outcome and returns the new state.
func (f *Flow) settle(state State, message, email string) State {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	f.message = message
	if email != "" {
		f.email = email
	}
	return state
}

// Start redeems a verification link token. A missing token is a
// precondition failure, not a network failure. On success the resulting
// credentials go through the session controller's commit path and the
// pending-verification marker is cleared.
func (f *Flow) Start(token string) State {
	if token == "" {
		return f.settle(StateError, "Invalid verification link. No token provided.", "")
	}

	result, err := f.client.VerifyEmailToken(token)
	if f.isAbandoned() {
		// The flow was left before the answer arrived; drop it.
		state, _, _ := f.Snapshot()
		return state
	}
	if err != nil {
		f.log.Warn().Err(err).Msg("Verification request failed")
		return f.settle(StateError, "Failed to verify email. Please try again.", "")
	}

	switch {
	case result.OK:
		if result.Token != "" {
			f.sessions.Commit(result.Token, result.SessionID, result.User)
		}
		if err := f.store.Remove(credstore.KeyPendingEmail); err != nil {
			f.log.Warn().Err(err).Msg("Failed to clear pending verification email")
		}
		if f.OnSuccess != nil {
			fn := f.OnSuccess
			time.AfterFunc(f.redirectDelay, func() {
				if !f.isAbandoned() {
					fn()
				}
			})
		}
		return f.settle(StateSuccess, result.Message, "")
	case result.Expired:
		return f.settle(StateExpired, result.Message, result.Email)
	default:
		return f.settle(StateError, result.Message, "")
	}
}

// Pending enters pending/resend mode. A given email supersedes and
// replaces the stored marker; with no email the marker is restored from
// the store.
func (f *Flow) Pending(email string) (string, error) {
	if email != "" {
		if err := f.store.Set(credstore.KeyPendingEmail, email); err != nil {
			f.log.Warn().Err(err).Msg("Failed to persist pending verification email")
		}
		f.setEmail(email)
		return email, nil
	}

	stored, ok := f.store.Get(credstore.KeyPendingEmail)
	if !ok || stored == "" {
		return "", ErrNoPendingEmail
	}
	f.setEmail(stored)
	return stored, nil
}

// UseDifferentEmail discards the pending marker so registration can
// start over with another address.
func (f *Flow) UseDifferentEmail() {
	if err := f.store.Remove(credstore.KeyPendingEmail); err != nil {
		f.log.Warn().Err(err).Msg("Failed to clear pending verification email")
	}
	f.setEmail("")
}

// Resend asks the server for a fresh verification email. Valid from the
// Expired state or pending mode. Failures do not change the flow state;
// they surface as the returned error for transient display.
func (f *Flow) Resend(email string) error {
	if email == "" {
		return fmt.Errorf("no email to resend to")
	}

	f.mu.Lock()
	onCooldown := !f.lastResend.IsZero() && f.now().Sub(f.lastResend) < ResendCooldown
	f.mu.Unlock()
	if onCooldown {
		return ErrCooldown
	}

	result, err := f.client.ResendVerification(email)
	if err != nil {
		f.log.Warn().Err(err).Msg("Resend request failed")
		return fmt.Errorf("failed to resend verification email: %w", err)
	}
	if !result.OK {
		return errors.New(result.Message)
	}

	f.mu.Lock()
	f.lastResend = f.now()
	f.mu.Unlock()
	return nil
}

// Abandon marks the flow as left behind. A verify result that arrives
// afterwards is ignored and the OnSuccess redirect is suppressed.
func (f *Flow) Abandon() {
	f.mu.Lock()
	f.abandoned = true
	f.mu.Unlock()
}

func (f *Flow) isAbandoned() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.abandoned
}

func (f *Flow) setEmail(email string) {
	f.mu.Lock()
	f.email = email
	f.mu.Unlock()
}
