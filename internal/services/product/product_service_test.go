package product

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
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
	NewProductService(store, bus, zap.NewNop()).SetupRoutes(app, middleware.AuthMiddleware(jwtService))
	return &fixture{app: app, store: store, jwt: jwtService}
}

func (f *fixture) token(t *testing.T, u *models.UserProfile) string {
	t.Helper()
	token, err := f.jwt.GenerateToken(u.ID, u.Role)
	require.NoError(t, err)
	return token
}

func validSubmission() fiber.Map {
	return fiber.Map{
		"name":            "Notion AI",
		"description":     "Writing assistant",
		"tags":            " AI , Productivity,,",
		"redemption_type": "manual",
		"product_link":    "https://notion.so",
	}
}

func TestSubmitRequiresRedemptionType(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)

	body := validSubmission()
	delete(body, "redemption_type")

	status, resp := storetest.Do(t, f.app, http.MethodPost, "/api/products", f.token(t, user), body)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Please select a redemption type", storetest.ErrorMessage(t, resp))

	products, _ := f.store.ListProducts(context.Background())
	assert.Empty(t, products)
}

func TestSubmitStoresPendingAndNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)
	admin := f.store.AddUser("admin@example.com", models.RoleAdmin, 0)

	status, resp := storetest.Do(t, f.app, http.MethodPost, "/api/products", f.token(t, user), validSubmission())
	require.Equal(t, fiber.StatusCreated, status, string(resp))

	created := storetest.Decode[struct {
		Product models.Product `json:"product"`
	}](t, resp).Product
	assert.Equal(t, models.ProductPending, created.Status)
	assert.Equal(t, "AI,Productivity", created.Tags)

	notes := f.store.Notifications(admin.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.KindProduct, notes[0].Kind)
}

func TestSubmitValidatesFields(t *testing.T) {
	f := newFixture(t)
	user := f.store.AddUser("ada@example.com", models.RoleUser, 3)

	cases := []struct {
		name  string
		field string
		value any
		want  string
	}{
		{"blank name", "name", "   ", "Product name is required"},
		{"missing description", "description", "", "Description is required"},
		{"unknown redemption type", "redemption_type", "paypal", "Redemption type must be manual or stripe"},
		{"missing link", "product_link", "", "Product link is required"},
		{"link without scheme", "product_link", "notion.so", "Product link must be a valid http(s) URL"},
		{"ftp image", "image_url", "ftp://cdn.example/logo.png", "Image URL must be a valid http(s) URL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validSubmission()
			body[tc.field] = tc.value

			status, resp := storetest.Do(t, f.app, http.MethodPost, "/api/products", f.token(t, user), body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tc.want, storetest.ErrorMessage(t, resp))
		})
	}

	products, _ := f.store.ListProducts(context.Background())
	assert.Empty(t, products)
}

func TestBrowseSearch(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	viewer := f.store.AddUser("viewer@example.com", models.RoleUser, 3)

	a := f.store.AddProduct(owner.ID, "Notion AI", models.ProductApproved)
	f.store.AddProduct(owner.ID, "Figma", models.ProductApproved)
	f.store.AddProduct(owner.ID, "Notion Pending", models.ProductPending)
	f.store.AddProduct(owner.ID, "Linear", models.ProductApproved)

	status, resp := storetest.Get(t, f.app, "/api/products?q=NOTION", f.token(t, viewer))
	require.Equal(t, fiber.StatusOK, status)

	page := storetest.Decode[Page](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)

	status, resp = storetest.Get(t, f.app, "/api/products?sort=name&per_page=2&page=2", f.token(t, viewer))
	require.Equal(t, fiber.StatusOK, status)
	page = storetest.Decode[Page](t, resp)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Notion AI", page.Items[0].Name)

	status, _ = storetest.Get(t, f.app, "/api/products?sort=price", f.token(t, viewer))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	other := f.store.AddUser("other@example.com", models.RoleUser, 3)
	admin := f.store.AddUser("admin@example.com", models.RoleAdmin, 0)
	pending := f.store.AddProduct(owner.ID, "Secret", models.ProductPending)

	path := "/api/products/" + pending.ID.String()
	status, _ := storetest.Get(t, f.app, path, f.token(t, other))
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = storetest.Get(t, f.app, path, f.token(t, owner))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = storetest.Get(t, f.app, path, f.token(t, admin))
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = storetest.Get(t, f.app, "/api/products/not-a-uuid", f.token(t, owner))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestMineStats(t *testing.T) {
	f := newFixture(t)
	owner := f.store.AddUser("owner@example.com", models.RoleUser, 3)
	f.store.AddProduct(owner.ID, "A", models.ProductApproved)
	f.store.AddProduct(owner.ID, "B", models.ProductPending)
	f.store.AddProduct(owner.ID, "C", models.ProductRejected)

	status, resp := storetest.Get(t, f.app, "/api/products/my", f.token(t, owner))
	require.Equal(t, fiber.StatusOK, status)

	got := storetest.Decode[struct {
		Stats models.ProductStats `json:"stats"`
	}](t, resp)
	assert.Equal(t, models.ProductStats{Total: 3, Approved: 1, Pending: 1, Rejected: 1}, got.Stats)
}
