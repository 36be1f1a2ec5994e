package devserver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dropvault-dev/dropvault/internal/auth"
	"github.com/dropvault-dev/dropvault/internal/models"
)

// SeedUser is one entry in the YAML seed file
type SeedUser struct {
	Email    string `yaml:"email" validate:"required,email"`
	Password string `yaml:"password" validate:"required"`
	Name     string `yaml:"name"`
	Verified bool   `yaml:"verified"`
}

// SeedFile is the YAML seed file layout:
//
//	users:
//	  - email: alice@example.com
//	    password: password123
//	    name: Alice
//	    verified: true
type SeedFile struct {
	Users []SeedUser `yaml:"users"`
}

// seedUsers preloads users from a YAML file. Existing accounts are left
// untouched so the seed can run on every startup.
func (s *Server) seedUsers(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	for _, entry := range seed.Users {
		if err := s.validator.Struct(entry); err != nil {
			return fmt.Errorf("invalid seed user %q: %w", entry.Email, err)
		}

		var count int64
		if err := s.db.Model(&models.User{}).Where("email = ?", entry.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		passwordHash, err := auth.HashPassword(entry.Password)
		if err != nil {
			return err
		}

		user := &models.User{
			Email:         entry.Email,
			PasswordHash:  passwordHash,
			Name:          entry.Name,
			EmailVerified: entry.Verified,
		}
		if err := s.db.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create seed user %q: %w", entry.Email, err)
		}

		s.logger.Info().Str("email", entry.Email).Bool("verified", entry.Verified).Msg("Seeded user")
	}

	return nil
}
