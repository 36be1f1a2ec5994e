package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dropvault-dev/dropvault/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a dropvault.json in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(apiURL)
		},
	}

	cmd.Flags().StringVar(&apiURL, "api-url", config.DefaultAPIURL, "API base URL to write into the config")

	return cmd
}

func runInit(apiURL string) error {
	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Printf("Found existing %s (api_url: %s)\n", config.ConfigFileName, cfg.APIURL)
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.APIURL = apiURL

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	fmt.Printf("✓ Created ./%s pointing at %s\n", config.ConfigFileName, apiURL)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'dropvault login' to authenticate")
	fmt.Println("  2. Run 'dropvault whoami' to confirm the session")

	return nil
}
