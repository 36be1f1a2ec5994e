package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropvault-dev/dropvault/internal/cli/verification"
	"github.com/dropvault-dev/dropvault/internal/logger"
)

// NewVerifyCmd creates the verify command, the CLI counterpart of
// opening a verification link.
func NewVerifyCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Redeem an email verification link token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token from the verification link")

	return cmd
}

func runVerify(token string) error {
	sessions, store, client, err := newSessionController()
	if err != nil {
		return err
	}

	flow := verification.NewFlow(client, sessions, store, logger.GetLogger())

	state := flow.Start(token)
	_, message, email := flow.Snapshot()

	switch state {
	case verification.StateSuccess:
		fmt.Printf("✓ %s\n", message)
		if current := sessions.Current(); current.User != nil {
			fmt.Printf("  Signed in as %s\n", current.User.Email)
		}
		return nil
	case verification.StateExpired:
		fmt.Printf("%s\n", message)
		if email != "" {
			fmt.Printf("Run 'dropvault resend --email %s' to get a new link.\n", email)
		}
		return fmt.Errorf("verification link expired")
	default:
		return fmt.Errorf("verification failed: %s", message)
	}
}

// NewResendCmd creates the resend command for the pending-verification
// state.
func NewResendCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "resend",
		Short: "Resend the verification email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResend(email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Address awaiting verification (defaults to the stored pending address)")

	return cmd
}

func runResend(email string) error {
	sessions, store, client, err := newSessionController()
	if err != nil {
		return err
	}

	flow := verification.NewFlow(client, sessions, store, logger.GetLogger())

	pending, err := flow.Pending(email)
	if err != nil {
		if errors.Is(err, verification.ErrNoPendingEmail) {
			return fmt.Errorf("no pending verification email; pass --email or register first")
		}
		return err
	}

	if err := flow.Resend(pending); err != nil {
		if errors.Is(err, verification.ErrCooldown) {
			return fmt.Errorf("a verification email was just sent; wait a minute before retrying")
		}
		return fmt.Errorf("failed to resend: %w", err)
	}

	fmt.Printf("✓ Verification email sent to %s. Check your inbox.\n", pending)
	return nil
}
