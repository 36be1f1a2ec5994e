package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, _, _, err := newSessionController()
			if err != nil {
				return err
			}

			sessions.Logout()

			fmt.Println("✓ Signed out")
			return nil
		},
	}
}
