package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dropvault-dev/dropvault/internal/auth"
	"github.com/dropvault-dev/dropvault/internal/models"
)

// resendInterval is the server-side rate limit on verification emails,
// independent of the client's advisory cooldown.
const resendInterval = 60 * time.Second

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleLoginRequest represents an OAuth code exchange request
type GoogleLoginRequest struct {
	Code string `json:"code" binding:"required"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// ResendRequest represents a resend-verification request
type ResendRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func userJSON(user *models.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	}
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(buf)
}

func (s *Server) issueSession(c *gin.Context, user *models.User, message string) {
	token, err := auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	body := gin.H{
		"success":   true,
		"token":     token,
		"sessionid": randomHex(16),
		"user":      userJSON(user),
	}
	if message != "" {
		body["message"] = message
	}

	c.JSON(http.StatusOK, body)
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.EmailVerified {
		c.JSON(http.StatusForbidden, gin.H{
			"error":                 "Please verify your email first",
			"requires_verification": true,
			"email":                 user.Email,
		})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	s.issueSession(c, &user, "")
}

// loginWithGoogle fakes the OAuth code exchange: any non-empty code maps
// to a fixed, already-verified Google account.
func (s *Server) loginWithGoogle(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	const googleEmail = "google-user@example.com"

	var user models.User
	err := s.db.Where("email = ?", googleEmail).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			Email:         googleEmail,
			PasswordHash:  "-", // no password login for this account
			Name:          "Google User",
			EmailVerified: true,
		}
		err = s.db.Create(&user).Error
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to resolve Google user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Google login failed"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Google user logged in")

	s.issueSession(c, &user, "")
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
	}
	if err := s.db.Create(user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	if err := s.createVerificationToken(user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create verification token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered, verification pending")

	c.JSON(http.StatusCreated, gin.H{
		"success":               true,
		"requires_verification": true,
		"email":                 user.Email,
	})
}

// createVerificationToken replaces any outstanding unconsumed token for
// the user and logs the link a real deployment would email.
func (s *Server) createVerificationToken(user *models.User) error {
	if err := s.db.
		Where("user_id = ? AND consumed_at IS NULL", user.ID).
		Delete(&models.VerificationToken{}).Error; err != nil {
		return err
	}

	token := &models.VerificationToken{
		Token:     randomHex(24),
		Email:     user.Email,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(verificationTokenTTL),
	}
	if err := s.db.Create(token).Error; err != nil {
		return err
	}

	s.logger.Info().
		Str("email", user.Email).
		Str("link", "/api/verify-email-token/?token="+token.Token).
		Msg("Verification link (would be emailed)")

	return nil
}

func (s *Server) verifyEmailToken(c *gin.Context) {
	tokenValue := c.Query("token")
	if tokenValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No token provided"})
		return
	}

	var token models.VerificationToken
	if err := s.db.Where("token = ?", tokenValue).First(&token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid verification link."})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to look up verification token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if token.ConsumedAt != nil {
		c.JSON(http.StatusGone, gin.H{"error": "This verification link was already used."})
		return
	}

	if token.Expired() {
		c.JSON(http.StatusGone, gin.H{
			"expired": true,
			"email":   token.Email,
			"error":   "Verification link has expired.",
		})
		return
	}

	var user models.User
	if err := s.db.Where("id = ?", token.UserID).First(&user).Error; err != nil {
		s.logger.Error().Err(err).Str("user_id", token.UserID).Msg("Token owner not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid verification link."})
		return
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("email_verified", true).Error; err != nil {
			return err
		}
		return tx.Model(&token).Update("consumed_at", &now).Error
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to consume verification token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("Email verified")

	user.EmailVerified = true
	s.issueSession(c, &user, "Email verified successfully!")
}

func (s *Server) resendVerification(c *gin.Context) {
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No account found for this email"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if user.EmailVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already verified"})
		return
	}

	// Server-side rate limit; do not rely on the client cooldown.
	var latest models.VerificationToken
	err := s.db.
		Where("user_id = ? AND consumed_at IS NULL", user.ID).
		Order("created_at DESC").
		First(&latest).Error
	if err == nil && time.Since(latest.CreatedAt) < resendInterval {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "A verification email was sent recently. Please wait before retrying."})
		return
	}

	if err := s.createVerificationToken(&user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to create verification token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resend email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) logout(c *gin.Context) {
	user, _ := CurrentUser(c)
	if user != nil {
		s.logger.Info().Str("user_id", user.ID).Msg("User logged out")
	}

	// Tokens are stateless JWTs; nothing to revoke locally.
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) checkAuth(c *gin.Context) {
	user, exists := CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          userJSON(user),
	})
}

func (s *Server) getProfile(c *gin.Context) {
	user, exists := CurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userJSON(user)})
}
