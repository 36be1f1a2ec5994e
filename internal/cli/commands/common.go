package commands

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/dropvault-dev/dropvault/internal/cli/api"
	"github.com/dropvault-dev/dropvault/internal/cli/config"
	"github.com/dropvault-dev/dropvault/internal/cli/credstore"
	"github.com/dropvault-dev/dropvault/internal/cli/session"
	"github.com/dropvault-dev/dropvault/internal/logger"
)

// newCredentialStore picks the credential backend: the OS keychain when
// DROPVAULT_KEYRING=1, otherwise the JSON file under ~/.config/dropvault.
func newCredentialStore(log zerolog.Logger) (credstore.Store, error) {
	if os.Getenv("DROPVAULT_KEYRING") == "1" {
		return credstore.NewKeyringStore(), nil
	}
	return credstore.NewFileStore(log)
}

// newSessionController wires the store, API client, and controller the
// way every command consumes them.
func newSessionController() (*session.Controller, credstore.Store, *api.Client, error) {
	log := logger.GetLogger()

	store, err := newCredentialStore(log)
	if err != nil {
		return nil, nil, nil, err
	}

	client := api.New(config.ResolveAPIURL())
	return session.New(store, client, log), store, client, nil
}
