package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/config"
	"github.com/rajivgeraev/swapify-api/internal/mailer"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
	"github.com/rajivgeraev/swapify-api/internal/storetest"
	"github.com/rajivgeraev/swapify-api/internal/utils"
)

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) SendAsync(msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

type fixture struct {
	app    *fiber.App
	store  *storetest.Memory
	outbox *outbox
	jwt    *utils.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{AppBaseURL: "https://swapify.example", InitialSwapCredits: 3}
	store := storetest.NewMemory()
	box := &outbox{}
	jwtService := utils.NewJWTService("secret", time.Hour)

	app := storetest.NewApp()
	NewAuthService(cfg, store, box, jwtService, zap.NewNop()).SetupRoutes(app, middleware.AuthMiddleware(jwtService))
	return &fixture{app: app, store: store, outbox: box, jwt: jwtService}
}

func (f *fixture) signup(t *testing.T, email, password string) (int, []byte) {
	return storetest.Do(t, f.app, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"email": email, "password": password, "first_name": "Ada", "last_name": "Lovelace",
	})
}

func TestSignupAndLogin(t *testing.T) {
	f := newFixture(t)

	status, body := f.signup(t, "Ada@Example.com", "supersecret")
	require.Equal(t, fiber.StatusCreated, status, string(body))

	created := storetest.Decode[struct {
		Token    string             `json:"token"`
		Redirect string             `json:"redirect"`
		User     models.UserProfile `json:"user"`
	}](t, body)
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "/user", created.Redirect)
	assert.Equal(t, "ada@example.com", created.User.Email)
	assert.Equal(t, 3, created.User.SwapCredits)
	assert.NotContains(t, string(body), "password")

	status, body = f.signup(t, "ada@example.com", "anotherpass")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "An account with this email already exists", storetest.ErrorMessage(t, body))

	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "nobody@example.com", "password": "whatever1"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = storetest.Do(t, f.app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ada@example.com", "password": "supersecret"})
	require.Equal(t, fiber.StatusOK, status)
	token := storetest.Decode[map[string]any](t, body)["token"].(string)

	status, body = storetest.Get(t, f.app, "/api/profile", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(body), `"swap_credits":3`)
}

func TestAdminLoginRedirect(t *testing.T) {
	f := newFixture(t)
	status, _ := f.signup(t, "admin@example.com", "supersecret")
	require.Equal(t, fiber.StatusCreated, status)
	require.NoError(t, f.store.SetUserRole(context.Background(), "admin@example.com", models.RoleAdmin))

	status, body := storetest.Do(t, f.app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "admin@example.com", "password": "supersecret"})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "/admin", storetest.Decode[map[string]any](t, body)["redirect"])
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)

	status, body := f.signup(t, "not-an-email", "supersecret")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "A valid email is required", storetest.ErrorMessage(t, body))

	status, body = f.signup(t, "ada@example.com", "short")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Password must be at least 8 characters", storetest.ErrorMessage(t, body))

	status, body = storetest.Do(t, f.app, http.MethodPost, "/api/auth/reset-password", "", fiber.Map{
		"password": "newpassword", "confirm_password": "newpassword",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Reset token is required", storetest.ErrorMessage(t, body))
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	status, _ := f.signup(t, "ada@example.com", "supersecret")
	require.Equal(t, fiber.StatusCreated, status)

	// unknown accounts get the same answer and no email
	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/forgot-password", "", fiber.Map{"email": "ghost@example.com"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, f.outbox.sent)

	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/forgot-password", "", fiber.Map{"email": "ada@example.com"})
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, f.outbox.sent, 1)

	body := f.outbox.sent[0].Body
	idx := strings.Index(body, "token=")
	require.Positive(t, idx)
	token := strings.Fields(body[idx+len("token="):])[0]

	// only the hash is stored
	assert.NotContains(t, f.store.ResetTokenHashes(), token)
	assert.Equal(t, []string{hashToken(token)}, f.store.ResetTokenHashes())

	status, body2 := storetest.Do(t, f.app, http.MethodPost, "/api/auth/reset-password", "", fiber.Map{
		"token": token, "password": "newpassword", "confirm_password": "different",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Passwords do not match", storetest.ErrorMessage(t, body2))

	reset := fiber.Map{"token": token, "password": "newpassword", "confirm_password": "newpassword"}
	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/reset-password", "", reset)
	require.Equal(t, fiber.StatusOK, status)

	// single use
	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/reset-password", "", reset)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = storetest.Do(t, f.app, http.MethodPost, "/api/auth/login", "", fiber.Map{"email": "ada@example.com", "password": "newpassword"})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestProfileRequiresToken(t *testing.T) {
	f := newFixture(t)
	status, _ := storetest.Get(t, f.app, "/api/profile", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
