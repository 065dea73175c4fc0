// Package storetest provides an in-memory store with the same semantics as db.Store
// for handler tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/swapify-api/internal/db"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

type reset struct {
	userID    uuid.UUID
	expiresAt time.Time
	used      bool
}

// Memory is a thread-safe in-memory store
type Memory struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.UserProfile
	products      map[uuid.UUID]*models.Product
	swaps         map[uuid.UUID]*models.Swap
	shoutouts     map[uuid.UUID]*models.Shoutout
	notifications map[uuid.UUID]*models.Notification
	resets        map[string]*reset

	// Now stamps created rows; defaults to time.Now
	Now func() time.Time
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{
		users:         map[uuid.UUID]*models.UserProfile{},
		products:      map[uuid.UUID]*models.Product{},
		swaps:         map[uuid.UUID]*models.Swap{},
		shoutouts:     map[uuid.UUID]*models.Shoutout{},
		notifications: map[uuid.UUID]*models.Notification{},
		resets:        map[string]*reset{},
		Now:           time.Now,
	}
}

// --- users

func (m *Memory) CreateUser(_ context.Context, u db.NewUser) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.users {
		if existing.Email == email {
			return nil, db.ErrConflict
		}
	}
	now := m.Now()
	profile := &models.UserProfile{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		SwapCredits:  u.SwapCredits,
		Prefs:        models.DefaultNotificationPrefs(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.users[profile.ID] = profile
	cp := *profile
	return &cp, nil
}

// AddUser is a test helper that creates a user and returns it
func (m *Memory) AddUser(email string, role models.Role, credits int) *models.UserProfile {
	u, err := m.CreateUser(context.Background(), db.NewUser{Email: email, Role: role, SwapCredits: credits, FirstName: strings.Split(email, "@")[0]})
	if err != nil {
		panic(err)
	}
	return u
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *Memory) GetUserByID(_ context.Context, id uuid.UUID) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) SetUserRole(_ context.Context, email string, role models.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.users {
		if u.Email == email {
			u.Role = role
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *Memory) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for _, u := range m.users {
		if u.Role == models.RoleAdmin {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (m *Memory) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *Memory) ListSignupTimes(_ context.Context, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var times []time.Time
	for _, u := range m.users {
		if inRange(u.CreatedAt, from, to) {
			times = append(times, u.CreatedAt)
		}
	}
	return times, nil
}

func (m *Memory) CreatePasswordReset(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[tokenHash] = &reset{userID: userID, expiresAt: expiresAt}
	return nil
}

func (m *Memory) ResetPassword(_ context.Context, tokenHash, passwordHash string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[tokenHash]
	if !ok || r.used || !r.expiresAt.After(m.Now()) {
		return uuid.Nil, db.ErrNotFound
	}
	r.used = true
	if u, ok := m.users[r.userID]; ok {
		u.PasswordHash = passwordHash
	}
	return r.userID, nil
}

// ResetTokenHashes returns the stored reset token hashes
func (m *Memory) ResetTokenHashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hashes []string
	for h := range m.resets {
		hashes = append(hashes, h)
	}
	return hashes
}

func (m *Memory) GetNotificationPrefs(_ context.Context, userID uuid.UUID) (models.NotificationPrefs, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return models.NotificationPrefs{}, db.ErrNotFound
	}
	return u.Prefs, nil
}

func (m *Memory) UpdateNotificationPrefs(_ context.Context, userID uuid.UUID, prefs models.NotificationPrefs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	u.Prefs = prefs
	return nil
}

// --- products

func (m *Memory) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = models.ProductPending
	p.CreatedAt = m.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// AddProduct is a test helper that stores a product in the given status
func (m *Memory) AddProduct(owner uuid.UUID, name string, status models.ProductStatus) *models.Product {
	p := &models.Product{UserID: owner, Name: name, RedemptionType: models.RedemptionManual, ProductLink: "https://example.com"}
	if err := m.CreateProduct(context.Background(), p); err != nil {
		panic(err)
	}
	m.mu.Lock()
	m.products[p.ID].Status = status
	m.mu.Unlock()
	p.Status = status
	return p
}

func (m *Memory) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return m.withOwner(*p), nil
}

func (m *Memory) ListProductsByUser(_ context.Context, userID uuid.UUID) ([]models.Product, error) {
	return m.filterProducts(func(p *models.Product) bool { return p.UserID == userID }, 0), nil
}

func (m *Memory) ListProductsByStatus(_ context.Context, status models.ProductStatus, limit int) ([]models.Product, error) {
	return m.filterProducts(func(p *models.Product) bool { return p.Status == status }, limit), nil
}

func (m *Memory) ListProducts(context.Context) ([]models.Product, error) {
	return m.filterProducts(func(*models.Product) bool { return true }, 0), nil
}

func (m *Memory) ListProductsCreatedIn(_ context.Context, from, to time.Time) ([]models.Product, error) {
	return m.filterProducts(func(p *models.Product) bool { return inRange(p.CreatedAt, from, to) }, 0), nil
}

func (m *Memory) UpdateProductStatus(_ context.Context, id uuid.UUID, from, to models.ProductStatus) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if p.Status != from {
		return nil, db.ErrStaleStatus
	}
	p.Status = to
	p.UpdatedAt = m.Now()
	return m.withOwner(*p), nil
}

func (m *Memory) filterProducts(keep func(p *models.Product) bool, limit int) []models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Product{}
	for _, p := range m.products {
		if keep(p) {
			list = append(list, *m.withOwner(*p))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list
}

func (m *Memory) withOwner(p models.Product) *models.Product {
	if u, ok := m.users[p.UserID]; ok {
		p.Owner = u.Public()
	}
	return &p
}

// --- swaps

func (m *Memory) CreateSwap(_ context.Context, sw *models.Swap) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sender, ok := m.users[sw.SenderID]
	if !ok || sender.SwapCredits <= 0 {
		return db.ErrNoSwapCredits
	}
	for _, existing := range m.swaps {
		if existing.SenderID == sw.SenderID && existing.ProductID == sw.ProductID && existing.Status == models.SwapPending {
			return db.ErrConflict
		}
	}

	sender.SwapCredits--
	if sw.ID == uuid.Nil {
		sw.ID = uuid.New()
	}
	sw.Status = models.SwapPending
	sw.CreatedAt = m.Now()
	sw.UpdatedAt = sw.CreatedAt
	cp := *sw
	m.swaps[sw.ID] = &cp
	return nil
}

func (m *Memory) GetSwap(_ context.Context, id uuid.UUID) (*models.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sw, ok := m.swaps[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return m.expandSwap(*sw), nil
}

func (m *Memory) ListSwapsForUser(_ context.Context, userID uuid.UUID, f models.SwapFilter) ([]models.Swap, error) {
	return m.filterSwaps(func(sw *models.Swap) bool {
		switch f.Direction {
		case models.SwapDirectionIncoming:
			if sw.ReceiverID != userID {
				return false
			}
		case models.SwapDirectionOutgoing:
			if sw.SenderID != userID {
				return false
			}
		default:
			if sw.SenderID != userID && sw.ReceiverID != userID {
				return false
			}
		}
		return f.Status == "" || sw.Status == f.Status
	}), nil
}

func (m *Memory) ListSwapHistory(_ context.Context, userID uuid.UUID, q string) ([]models.Swap, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	return m.filterSwaps(func(sw *models.Swap) bool {
		if sw.Status != models.SwapAccepted || (sw.SenderID != userID && sw.ReceiverID != userID) {
			return false
		}
		if q == "" {
			return true
		}
		p := m.products[sw.ProductID]
		return p != nil && (strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(p.ID.String(), q))
	}), nil
}

func (m *Memory) ListSwaps(context.Context) ([]models.Swap, error) {
	return m.filterSwaps(func(*models.Swap) bool { return true }), nil
}

func (m *Memory) ListSwapsActiveIn(_ context.Context, from, to time.Time) ([]models.Swap, error) {
	return m.filterSwaps(func(sw *models.Swap) bool {
		return inRange(sw.CreatedAt, from, to) || (sw.Status == models.SwapAccepted && inRange(sw.UpdatedAt, from, to))
	}), nil
}

func (m *Memory) UpdateSwapStatus(_ context.Context, id uuid.UUID, to models.SwapStatus) (*models.Swap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sw, ok := m.swaps[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if sw.Status != models.SwapPending {
		return nil, db.ErrStaleStatus
	}
	sw.Status = to
	sw.UpdatedAt = m.Now()
	if to == models.SwapRejected {
		if sender, ok := m.users[sw.SenderID]; ok {
			sender.SwapCredits++
		}
	}
	return m.expandSwap(*sw), nil
}

func (m *Memory) filterSwaps(keep func(sw *models.Swap) bool) []models.Swap {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Swap{}
	for _, sw := range m.swaps {
		if keep(sw) {
			list = append(list, *m.expandSwap(*sw))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func (m *Memory) expandSwap(sw models.Swap) *models.Swap {
	if p, ok := m.products[sw.ProductID]; ok {
		sw.Product = m.withOwner(*p)
	}
	if sw.OfferedProductID != nil {
		if p, ok := m.products[*sw.OfferedProductID]; ok {
			sw.OfferedProduct = m.withOwner(*p)
		}
	}
	if u, ok := m.users[sw.SenderID]; ok {
		sw.Sender = u.Public()
	}
	if u, ok := m.users[sw.ReceiverID]; ok {
		sw.Receiver = u.Public()
	}
	return &sw
}

// SetSwapStatus is a test helper that forces a swap status
func (m *Memory) SetSwapStatus(id uuid.UUID, status models.SwapStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swaps[id].Status = status
	m.swaps[id].UpdatedAt = m.Now()
}

// --- shoutouts

func (m *Memory) CreateShoutout(_ context.Context, sh *models.Shoutout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.shoutouts {
		if existing.UserID == sh.UserID && existing.ProductID == sh.ProductID {
			return db.ErrConflict
		}
	}
	if sh.ID == uuid.Nil {
		sh.ID = uuid.New()
	}
	sh.CreatedAt = m.Now()
	sh.UpdatedAt = sh.CreatedAt
	cp := *sh
	m.shoutouts[sh.ID] = &cp
	if u, ok := m.users[sh.UserID]; ok {
		u.SwapCredits++
	}
	return nil
}

func (m *Memory) ListShoutouts(_ context.Context, f db.ShoutoutFilter) ([]models.Shoutout, error) {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	list := m.filterShoutouts(func(sh *models.Shoutout) bool {
		if f.Rating > 0 && sh.Rating != f.Rating {
			return false
		}
		if q == "" {
			return true
		}
		name := ""
		if p, ok := m.products[sh.ProductID]; ok {
			name = p.Name
		}
		return strings.Contains(strings.ToLower(sh.Content), q) || strings.Contains(strings.ToLower(name), q)
	})
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func (m *Memory) ListShoutoutsByUser(_ context.Context, userID uuid.UUID) ([]models.Shoutout, error) {
	return m.filterShoutouts(func(sh *models.Shoutout) bool { return sh.UserID == userID }), nil
}

func (m *Memory) ListShoutoutsCreatedIn(_ context.Context, from, to time.Time) ([]models.Shoutout, error) {
	return m.filterShoutouts(func(sh *models.Shoutout) bool { return inRange(sh.CreatedAt, from, to) }), nil
}

func (m *Memory) filterShoutouts(keep func(sh *models.Shoutout) bool) []models.Shoutout {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Shoutout{}
	for _, sh := range m.shoutouts {
		if !keep(sh) {
			continue
		}
		cp := *sh
		if p, ok := m.products[sh.ProductID]; ok {
			cp.Product = m.withOwner(*p)
		}
		if u, ok := m.users[sh.UserID]; ok {
			cp.Author = u.Public()
		}
		list = append(list, cp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

// --- notifications

func (m *Memory) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Kind == "" {
		n.Kind = models.KindSystem
	}
	n.ReadStatus = false
	n.CreatedAt = m.Now()
	n.UpdatedAt = n.CreatedAt
	cp := *n
	m.notifications[n.ID] = &cp
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := []models.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.ReadStatus) {
			list = append(list, *n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *Memory) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.ReadStatus {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return db.ErrNotFound
	}
	n.ReadStatus = true
	return nil
}

func (m *Memory) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.ReadStatus {
			n.ReadStatus = true
			count++
		}
	}
	return count, nil
}

// Notifications returns every notification of a user, newest first
func (m *Memory) Notifications(userID uuid.UUID) []models.Notification {
	list, _ := m.ListNotifications(context.Background(), userID, false, 0)
	return list
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
