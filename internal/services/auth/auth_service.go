package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/rajivgeraev/swapify-api/internal/config"
	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/mailer"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
	"github.com/rajivgeraev/swapify-api/internal/utils"
	"github.com/rajivgeraev/swapify-api/internal/validation"
)

const resetTokenTTL = time.Hour

// Store is the storage the auth service needs
type Store interface {
	CreateUser(ctx context.Context, u db.NewUser) (*models.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.UserProfile, error)
	CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, tokenHash, passwordHash string) (uuid.UUID, error)
}

// Mailer queues outgoing mail
type Mailer interface {
	SendAsync(msg mailer.Message) error
}

// AuthService handles sign-up, sign-in and password resets
type AuthService struct {
	cfg        *config.Config
	store      Store
	mailer     Mailer
	jwtService *utils.JWTService
	log        *zap.Logger
}

// NewAuthService creates an AuthService
func NewAuthService(cfg *config.Config, store Store, m Mailer, jwtService *utils.JWTService, log *zap.Logger) *AuthService {
	return &AuthService{
		cfg:        cfg,
		store:      store,
		mailer:     m,
		jwtService: jwtService,
		log:        log.Named("auth"),
	}
}

// Signup creates an account with the user role
func (s *AuthService) Signup(c fiber.Ctx) error {
	var req struct {
		Email     string `json:"email" validate:"required,email" msg:"A valid email is required"`
		Password  string `json:"password" validate:"min=8" msg:"Password must be at least 8 characters"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message(err)})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("hash password failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.store.CreateUser(ctx, db.NewUser{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         models.RoleUser,
		SwapCredits:  s.cfg.InitialSwapCredits,
	})
	if err != nil {
		if errors.Is(err, db.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "An account with this email already exists"})
		}
		s.log.Error("create user failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}

	return s.respondWithToken(c, fiber.StatusCreated, user)
}

// Login checks the credentials and returns a token
func (s *AuthService) Login(c fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
		}
		s.log.Error("load user failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to sign in"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid credentials"})
	}

	return s.respondWithToken(c, fiber.StatusOK, user)
}

// ForgotPassword emails a reset link. The response never reveals whether the account exists.
func (s *AuthService) ForgotPassword(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	generic := fiber.Map{"message": "If an account exists for this email, a reset link has been sent"}

	email := normalizeEmail(req.Email)
	if email == "" {
		return c.JSON(generic)
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			s.log.Error("load user failed", zap.Error(err))
		}
		return c.JSON(generic)
	}

	token, err := newResetToken()
	if err != nil {
		s.log.Error("generate reset token failed", zap.Error(err))
		return c.JSON(generic)
	}

	if err := s.store.CreatePasswordReset(ctx, user.ID, hashToken(token), time.Now().Add(resetTokenTTL)); err != nil {
		s.log.Error("store reset token failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return c.JSON(generic)
	}

	link := s.cfg.AppBaseURL + "/auth/reset-password?token=" + url.QueryEscape(token)
	err = s.mailer.SendAsync(mailer.Message{
		To:      user.Email,
		Subject: "Reset your Swapify password",
		Body: "Hi " + user.DisplayName() + ",\n\nUse the link below to choose a new password. It expires in one hour.\n\n" +
			link + "\n\nIf you did not ask for this, you can ignore this email.\n",
	})
	if err != nil {
		s.log.Error("queue reset email failed", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return c.JSON(generic)
}

// ResetPassword sets a new password with a single-use token
func (s *AuthService) ResetPassword(c fiber.Ctx) error {
	var req struct {
		Token           string `json:"token" validate:"required" msg:"Reset token is required"`
		Password        string `json:"password" validate:"min=8" msg:"Password must be at least 8 characters"`
		ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password" msg:"Passwords do not match"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message(err)})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("hash password failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reset password"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	userID, err := s.store.ResetPassword(ctx, hashToken(req.Token), string(hash))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Reset link is invalid or has expired"})
		}
		s.log.Error("reset password failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to reset password"})
	}

	s.log.Info("password reset", zap.String("user_id", userID.String()))
	return c.JSON(fiber.Map{"message": "Password updated, you can sign in now"})
}

// Profile returns the signed-in user's profile
func (s *AuthService) Profile(c fiber.Ctx) error {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	ctx, cancel := db.GetContext()
	defer cancel()

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		s.log.Error("load profile failed", zap.String("user_id", userID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	return c.JSON(fiber.Map{"user": user})
}

func (s *AuthService) respondWithToken(c fiber.Ctx, status int, user *models.UserProfile) error {
	token, err := s.jwtService.GenerateToken(user.ID, user.Role)
	if err != nil {
		s.log.Error("generate token failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate token"})
	}

	return c.Status(status).JSON(fiber.Map{
		"token":    token,
		"user":     user,
		"redirect": user.Role.HomePath(),
	})
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
