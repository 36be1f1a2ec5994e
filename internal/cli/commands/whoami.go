package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropvault-dev/dropvault/internal/cli/session"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, _, _, err := newSessionController()
			if err != nil {
				return err
			}

			sessions.Initialize()

			current := sessions.Current()
			if current.Status != session.StatusAuthenticated {
				return fmt.Errorf("not signed in. Run 'dropvault login' first")
			}

			if current.User != nil {
				fmt.Printf("Signed in as %s (%s)\n", current.User.Name, current.User.Email)
			} else {
				fmt.Println("Signed in")
			}
			return nil
		},
	}
}
