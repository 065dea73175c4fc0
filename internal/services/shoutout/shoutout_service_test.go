package shoutout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/events"
	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
	"github.com/rajivgeraev/swapify-api/internal/storetest"
	"github.com/rajivgeraev/swapify-api/internal/utils"
)

type fixture struct {
	app   *fiber.App
	store *storetest.Memory
	jwt   *utils.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storetest.NewMemory()
	jwtService := utils.NewJWTService("secret", time.Hour)
	bus := events.NewBus()
	require.NoError(t, events.NewNotifier(store, nil, zap.NewNop()).Register(bus))

	app := storetest.NewApp()
	NewShoutoutService(store, bus, zap.NewNop()).SetupRoutes(app, middleware.AuthMiddleware(jwtService))
	return &fixture{app: app, store: store, jwt: jwtService}
}

func (f *fixture) token(t *testing.T, u *models.UserProfile) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

// swap creates a swap from sender for a product of owner and forces its status
func (f *fixture) swap(t *testing.T, owner, sender *models.UserProfile, name string, status models.SwapStatus) *models.Swap {
	t.Helper()
	product := f.store.AddProduct(owner.ID, name, models.ProductApproved)
	sw := &models.Swap{SenderID: sender.ID, ReceiverID: owner.ID, ProductID: product.ID}
	require.NoError(t, f.store.CreateSwap(t.Context(), sw))
	if status != models.SwapPending {
		f.store.SetSwapStatus(sw.ID, status)
	}
	return sw
}

type listResponse struct {
	Shoutouts []models.Shoutout `json:"shoutouts"`
	Count     int               `json:"count"`
}

func credits(t *testing.T, f *fixture, id uuid.UUID) int {
	t.Helper()
	u, err := f.store.GetUserByID(t.Context(), id)
	require.NoError(t, err)
	return u.SwapCredits
}

func TestCreateShoutoutAwardsOneCredit(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	author := f.store.AddUser("author@example.com", models.RoleUser, 1)
	sw := f.swap(t, owner, author, "Notion AI", models.SwapAccepted)
	require.Equal(t, 0, credits(t, f, author.ID))

	body := fiber.Map{"swap_id": sw.ID.String(), "rating": 5, "content": "  Great tool  "}
	status, resp := storetest.Do(t, f.app, http.MethodPost, "/api/shoutouts", f.token(t, author), body)
	require.Equal(t, fiber.StatusCreated, status, string(resp))

	got := storetest.Decode[struct {
		Shoutout    models.Shoutout `json:"shoutout"`
		SwapCredits int             `json:"swap_credits"`
	}](t, resp)
	assert.Equal(t, "Great tool", got.Shoutout.Content)
	assert.Equal(t, 1, got.SwapCredits)
	assert.Equal(t, 1, credits(t, f, author.ID))

	status, resp = storetest.Do(t, f.app, http.MethodPost, "/api/shoutouts", f.token(t, author), body)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "You already posted a shoutout for this product", storetest.ErrorMessage(t, resp))
	assert.Equal(t, 1, credits(t, f, author.ID))

	authorNotes := f.store.Notifications(author.ID)
	require.Len(t, authorNotes, 1)
	assert.Equal(t, models.KindSystem, authorNotes[0].Kind)

	ownerNotes := f.store.Notifications(owner.ID)
	require.Len(t, ownerNotes, 1)
	assert.Equal(t, models.KindShoutout, ownerNotes[0].Kind)
	assert.Contains(t, ownerNotes[0].Message, "5-star")
}

// profileOutage fails profile reads after the shoutout is written
type profileOutage struct {
	*storetest.Memory
}

func (profileOutage) GetUserByID(context.Context, uuid.UUID) (*models.UserProfile, error) {
	return nil, errors.New("connection reset")
}

func TestCreateShoutoutSurvivesProfileReadFailure(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	author := f.store.AddUser("author@example.com", models.RoleUser, 1)
	sw := f.swap(t, owner, author, "Notion AI", models.SwapAccepted)

	bus := events.NewBus()
	require.NoError(t, events.NewNotifier(f.store, nil, zap.NewNop()).Register(bus))
	app := storetest.NewApp()
	NewShoutoutService(profileOutage{f.store}, bus, zap.NewNop()).SetupRoutes(app, middleware.AuthMiddleware(f.jwt))

	body := fiber.Map{"swap_id": sw.ID.String(), "rating": 4, "content": "Solid"}
	status, resp := storetest.Do(t, app, http.MethodPost, "/api/shoutouts", f.token(t, author), body)
	require.Equal(t, fiber.StatusCreated, status, string(resp))

	got := storetest.Decode[map[string]any](t, resp)
	assert.NotContains(t, got, "swap_credits")
	assert.Equal(t, 1, credits(t, f, author.ID))

	require.Len(t, f.store.Notifications(author.ID), 1)
	ownerNotes := f.store.Notifications(owner.ID)
	require.Len(t, ownerNotes, 1)
	assert.Contains(t, ownerNotes[0].Message, "A user left a 4-star shoutout")

	// a retry is still a duplicate, not a second credit
	status, _ = storetest.Do(t, app, http.MethodPost, "/api/shoutouts", f.token(t, author), body)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, 1, credits(t, f, author.ID))
}

func TestCreateShoutoutRules(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	author := f.store.AddUser("author@example.com", models.RoleUser, 3)
	accepted := f.swap(t, owner, author, "Notion AI", models.SwapAccepted)
	pending := f.swap(t, owner, author, "Figma", models.SwapPending)

	cases := []struct {
		name   string
		user   *models.UserProfile
		body   fiber.Map
		status int
	}{
		{"bad swap id", author, fiber.Map{"swap_id": "x", "rating": 5, "content": "ok"}, fiber.StatusBadRequest},
		{"unknown swap", author, fiber.Map{"swap_id": uuid.NewString(), "rating": 5, "content": "ok"}, fiber.StatusNotFound},
		{"not the sender", owner, fiber.Map{"swap_id": accepted.ID.String(), "rating": 5, "content": "ok"}, fiber.StatusForbidden},
		{"not accepted", author, fiber.Map{"swap_id": pending.ID.String(), "rating": 5, "content": "ok"}, fiber.StatusBadRequest},
		{"rating too high", author, fiber.Map{"swap_id": accepted.ID.String(), "rating": 6, "content": "ok"}, fiber.StatusBadRequest},
		{"rating zero", author, fiber.Map{"swap_id": accepted.ID.String(), "rating": 0, "content": "ok"}, fiber.StatusBadRequest},
		{"blank content", author, fiber.Map{"swap_id": accepted.ID.String(), "rating": 4, "content": "   "}, fiber.StatusBadRequest},
		{"content too long", author, fiber.Map{"swap_id": accepted.ID.String(), "rating": 4, "content": strings.Repeat("a", 2001)}, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := storetest.Do(t, f.app, http.MethodPost, "/api/shoutouts", f.token(t, tc.user), tc.body)
			assert.Equal(t, tc.status, status, string(resp))
		})
	}

	mine, err := f.store.ListShoutoutsByUser(t.Context(), author.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestListAndLatest(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	author := f.store.AddUser("author@example.com", models.RoleUser, 3)

	for i, name := range []string{"Notion AI", "Figma", "Linear"} {
		sw := f.swap(t, owner, author, name, models.SwapAccepted)
		require.NoError(t, f.store.CreateShoutout(t.Context(), &models.Shoutout{
			UserID: author.ID, ProductID: sw.ProductID, SwapID: sw.ID,
			Content: "Review of " + name, Rating: 3 + i,
		}))
	}

	count := func(path, token string) int {
		status, resp := storetest.Get(t, f.app, path, token)
		require.Equal(t, fiber.StatusOK, status, string(resp))
		return storetest.Decode[listResponse](t, resp).Count
	}

	token := f.token(t, owner)
	assert.Equal(t, 3, count("/api/shoutouts", token))
	assert.Equal(t, 1, count("/api/shoutouts?q=figma", token))
	assert.Equal(t, 1, count("/api/shoutouts?rating=5", token))
	assert.Equal(t, 3, count("/api/shoutouts/my", f.token(t, author)))
	assert.Equal(t, 0, count("/api/shoutouts/my", token))

	// Latest needs no token
	assert.Equal(t, 3, count("/api/shoutouts/latest", ""))
	assert.Equal(t, 2, count("/api/shoutouts/latest?limit=2", ""))

	status, _ := storetest.Get(t, f.app, "/api/shoutouts?rating=9", token)
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = storetest.Get(t, f.app, "/api/shoutouts", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestEligible(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	author := f.store.AddUser("author@example.com", models.RoleUser, 5)

	reviewed := f.swap(t, owner, author, "Notion AI", models.SwapAccepted)
	open := f.swap(t, owner, author, "Figma", models.SwapAccepted)
	f.swap(t, owner, author, "Linear", models.SwapPending)
	require.NoError(t, f.store.CreateShoutout(t.Context(), &models.Shoutout{
		UserID: author.ID, ProductID: reviewed.ProductID, SwapID: reviewed.ID, Content: "ok", Rating: 4,
	}))

	status, resp := storetest.Get(t, f.app, "/api/shoutouts/eligible", f.token(t, author))
	require.Equal(t, fiber.StatusOK, status)

	got := storetest.Decode[struct {
		Swaps []models.Swap `json:"swaps"`
	}](t, resp).Swaps
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)
}

func TestEligibleSwapsDedupesProducts(t *testing.T) {
	product := uuid.New()
	swaps := []models.Swap{{ID: uuid.New(), ProductID: product}, {ID: uuid.New(), ProductID: product}}

	got := EligibleSwaps(swaps, nil)
	require.Len(t, got, 1)
	assert.Equal(t, swaps[0].ID, got[0].ID)
}
