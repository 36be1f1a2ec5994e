package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dropvault-dev/dropvault/internal/cli/api"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password, googleCode string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to DropVault",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(email, password, googleCode)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set DROPVAULT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set DROPVAULT_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&googleCode, "google-code", "", "Google OAuth authorization code (alternative to email/password)")

	return cmd
}

func runLogin(email, password, googleCode string) error {
	sessions, _, _, err := newSessionController()
	if err != nil {
		return err
	}

	if googleCode != "" {
		outcome := sessions.LoginWithGoogle(googleCode)
		if !outcome.OK {
			return fmt.Errorf("login failed: %s", outcome.Message)
		}
		printSignedIn(sessions.Current().User)
		return nil
	}

	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("DROPVAULT_EMAIL")
	}
	if password == "" {
		password = os.Getenv("DROPVAULT_PASSWORD")
	}

	if email == "" {
		return fmt.Errorf("email is required (use --email flag or DROPVAULT_EMAIL env var)")
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or DROPVAULT_PASSWORD env var)")
		}
	}

	outcome := sessions.Login(email, password)

	if outcome.RequiresVerification {
		fmt.Printf("%s\n", outcome.Message)
		fmt.Printf("A verification link was sent to %s.\n", outcome.Email)
		fmt.Println("Run 'dropvault resend' to request a new link if it expired.")
		return fmt.Errorf("email not verified")
	}

	if !outcome.OK {
		return fmt.Errorf("login failed: %s", outcome.Message)
	}

	printSignedIn(sessions.Current().User)
	return nil
}

func printSignedIn(user *api.User) {
	fmt.Println("✓ Login successful!")
	if user != nil {
		fmt.Printf("  User: %s (%s)\n", user.Name, user.Email)
	}
}
