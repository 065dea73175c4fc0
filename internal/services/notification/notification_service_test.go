package notification

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajivgeraev/swapify-api/internal/middleware"
	"github.com/rajivgeraev/swapify-api/internal/models"
	"github.com/rajivgeraev/swapify-api/internal/notify"
	"github.com/rajivgeraev/swapify-api/internal/storetest"
	"github.com/rajivgeraev/swapify-api/internal/utils"
)

type fixture struct {
	app   *fiber.App
	store *storetest.Memory
	hub   *notify.Hub
	jwt   *utils.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storetest.NewMemory()
	hub := notify.NewHub(zap.NewNop())
	t.Cleanup(hub.Shutdown)
	jwtService := utils.NewJWTService("secret", time.Hour)

	app := storetest.NewApp()
	NewNotificationService(store, hub, zap.NewNop()).SetupRoutes(app, middleware.AuthMiddleware(jwtService))
	return &fixture{app: app, store: store, hub: hub, jwt: jwtService}
}

func (f *fixture) token(t *testing.T, u *models.UserProfile) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

func (f *fixture) notify(t *testing.T, userID uuid.UUID, msg string) *models.Notification {
	t.Helper()
	n := &models.Notification{UserID: userID, Kind: models.KindSwap, Message: msg}
	require.NoError(t, f.store.CreateNotification(t.Context(), n))
	return n
}

type listResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Count         int                   `json:"count"`
}

func TestInbox(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)
	other := f.store.AddUser("bob@example.com", models.RoleUser, 3)
	token := f.token(t, user)

	first := f.notify(t, user.ID, "one")
	f.notify(t, user.ID, "two")
	foreign := f.notify(t, other.ID, "not yours")

	status, body := storetest.Get(t, f.app, "/api/notifications", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2, storetest.Decode[listResponse](t, body).Count)

	status, body = storetest.Get(t, f.app, "/api/notifications?limit=1", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, storetest.Decode[listResponse](t, body).Count)

	status, _ = storetest.Do(t, f.app, http.MethodPut, "/api/notifications/"+first.ID.String()+"/read", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = storetest.Do(t, f.app, http.MethodPut, "/api/notifications/"+foreign.ID.String()+"/read", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = storetest.Get(t, f.app, "/api/notifications/unread-count", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, storetest.Decode[struct {
		Unread int `json:"unread"`
	}](t, body).Unread)

	status, body = storetest.Get(t, f.app, "/api/notifications?unread=true", token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, storetest.Decode[listResponse](t, body).Count)

	status, body = storetest.Do(t, f.app, http.MethodPut, "/api/notifications/read-all", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, storetest.Decode[map[string]any](t, body)["updated"])

	status, _ = storetest.Get(t, f.app, "/api/notifications?limit=zero", token)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPreferences(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)
	token := f.token(t, user)

	status, body := storetest.Get(t, f.app, "/api/notifications/preferences", token)
	require.Equal(t, fiber.StatusOK, status)
	got := storetest.Decode[struct {
		Preferences models.NotificationPrefs `json:"preferences"`
	}](t, body).Preferences
	assert.Equal(t, models.DefaultNotificationPrefs(), got)

	status, _ = storetest.Do(t, f.app, http.MethodPut, "/api/notifications/preferences", token, fiber.Map{
		"swapEvents": false,
		"digest":     "weekly",
	})
	require.Equal(t, fiber.StatusOK, status)

	prefs, err := f.store.GetNotificationPrefs(t.Context(), user.ID)
	require.NoError(t, err)
	assert.False(t, prefs.SwapEvents)
	assert.True(t, prefs.Shoutouts)
	assert.Equal(t, models.DigestWeekly, prefs.Digest)

	status, _ = storetest.Do(t, f.app, http.MethodPut, "/api/notifications/preferences", token, fiber.Map{"digest": "hourly"})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestWaitTimesOut(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)

	status, _ := storetest.Get(t, f.app, "/api/notifications/wait?timeout=0.05", f.token(t, user))
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Zero(t, f.hub.Online())

	for _, raw := range []string{"-1", "0", "NaN", "Inf", "-Inf", "abc"} {
		status, _ = storetest.Get(t, f.app, "/api/notifications/wait?timeout="+raw, f.token(t, user))
		assert.Equal(t, fiber.StatusBadRequest, status, raw)
	}
}

func TestParseWait(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"", defaultWait, true},
		{"0.5", 500 * time.Millisecond, true},
		{"30", maxWait, true},
		{"1e12", maxWait, true},
		{"1e300", maxWait, true},
		{"NaN", 0, false},
		{"+Inf", 0, false},
		{"-5", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseWait(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestWaitReceivesPushedNotification(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)
	pushed := models.Notification{ID: uuid.New(), UserID: user.ID, Kind: models.KindSwap, Message: "hello"}

	go func() {
		for f.hub.Online() == 0 {
			time.Sleep(5 * time.Millisecond)
		}
		f.hub.Publish(pushed)
	}()

	status, body := storetest.Get(t, f.app, "/api/notifications/wait?timeout=0.9", f.token(t, user))
	require.Equal(t, fiber.StatusOK, status)
	got := storetest.Decode[struct {
		Notification models.Notification `json:"notification"`
	}](t, body).Notification
	assert.Equal(t, pushed.ID, got.ID)
	assert.Equal(t, "hello", got.Message)
}
