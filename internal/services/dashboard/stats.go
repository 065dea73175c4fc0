package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/swapify-api/internal/analytics"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

const (
	userActivityLimit  = 5
	adminActivityLimit = 8
	pendingPreview     = 5
)

// Activity types
const (
	ActivityProductSubmitted = "product_submitted"
	ActivitySwapSent         = "swap_sent"
	ActivitySwapReceived     = "swap_received"
	ActivitySwapRequested    = "swap_request"
	ActivityShoutoutPosted   = "shoutout_posted"
)

// Activity is one entry of a dashboard feed
type Activity struct {
	Type    string    `json:"type"`
	Details string    `json:"details"`
	Status  string    `json:"status,omitempty"`
	Date    time.Time `json:"date"`
}

// UserStats are the counters shown on a user's dashboard
type UserStats struct {
	TotalProducts    int `json:"total_products"`
	ApprovedProducts int `json:"approved_products"`
	PendingProducts  int `json:"pending_products"`
	TotalSwaps       int `json:"total_swaps"`
	IncomingSwaps    int `json:"incoming_swaps"`
	OutgoingSwaps    int `json:"outgoing_swaps"`
	CompletedSwaps   int `json:"completed_swaps"`
	TotalShoutouts   int `json:"total_shoutouts"`
	SwapCredits      int `json:"swap_credits"`
}

// AdminStats are the platform-wide counters shown to admins
type AdminStats struct {
	TotalUsers          int     `json:"total_users"`
	TotalProducts       int     `json:"total_products"`
	PendingProducts     int     `json:"pending_products"`
	ApprovedProducts    int     `json:"approved_products"`
	RejectedProducts    int     `json:"rejected_products"`
	TotalSwaps          int     `json:"total_swaps"`
	PendingSwaps        int     `json:"pending_swaps"`
	CompletedSwaps      int     `json:"completed_swaps"`
	TotalShoutouts      int     `json:"total_shoutouts"`
	PlatformSuccessRate int     `json:"platform_success_rate"`
	MonthlyGrowth       float64 `json:"monthly_growth"`
}

// UserDashboard is the response of the user dashboard
type UserDashboard struct {
	Stats          UserStats  `json:"stats"`
	RecentActivity []Activity `json:"recent_activity"`
}

// AdminDashboard is the response of the admin dashboard
type AdminDashboard struct {
	Stats           AdminStats       `json:"stats"`
	PendingProducts []models.Product `json:"pending_products"`
	RecentActivity  []Activity       `json:"recent_activity"`
}

// BuildUserDashboard computes a user's counters and activity feed
func BuildUserDashboard(userID uuid.UUID, credits int, products []models.Product, swaps []models.Swap, shoutouts []models.Shoutout) UserDashboard {
	counts := models.CountProducts(products)
	stats := UserStats{
		TotalProducts:    counts.Total,
		ApprovedProducts: counts.Approved,
		PendingProducts:  counts.Pending,
		TotalSwaps:       len(swaps),
		TotalShoutouts:   len(shoutouts),
		SwapCredits:      credits,
	}

	var feed []Activity
	for _, sw := range swaps {
		switch {
		case sw.Status == models.SwapAccepted:
			stats.CompletedSwaps++
		case sw.Status == models.SwapPending && sw.ReceiverID == userID:
			stats.IncomingSwaps++
		case sw.Status == models.SwapPending && sw.SenderID == userID:
			stats.OutgoingSwaps++
		}

		a := Activity{Type: ActivitySwapReceived, Status: string(sw.Status), Date: sw.CreatedAt}
		name := productName(sw.Product)
		if sw.SenderID == userID {
			a.Type = ActivitySwapSent
			a.Details = fmt.Sprintf("You requested a swap for %q", name)
		} else {
			a.Details = fmt.Sprintf("Swap request received for %q", name)
		}
		feed = append(feed, a)
	}
	for _, p := range products {
		feed = append(feed, Activity{
			Type:    ActivityProductSubmitted,
			Details: fmt.Sprintf("You submitted %q", p.Name),
			Status:  string(p.Status),
			Date:    p.CreatedAt,
		})
	}

	return UserDashboard{Stats: stats, RecentActivity: latest(feed, userActivityLimit)}
}

// BuildAdminDashboard computes the platform counters, the pending preview and the feed
func BuildAdminDashboard(users int, products []models.Product, swaps []models.Swap, shoutouts []models.Shoutout, now time.Time) AdminDashboard {
	counts := models.CountProducts(products)
	stats := AdminStats{
		TotalUsers:       users,
		TotalProducts:    counts.Total,
		PendingProducts:  counts.Pending,
		ApprovedProducts: counts.Approved,
		RejectedProducts: counts.Rejected,
		TotalSwaps:       len(swaps),
		TotalShoutouts:   len(shoutouts),
	}

	var feed []Activity
	pending := []models.Product{}
	created := make([]time.Time, 0, len(products))
	for _, p := range products {
		created = append(created, p.CreatedAt)
		if p.Status == models.ProductPending && len(pending) < pendingPreview {
			pending = append(pending, p)
		}
		feed = append(feed, Activity{
			Type:    ActivityProductSubmitted,
			Details: fmt.Sprintf("New product %q submitted", p.Name),
			Status:  string(p.Status),
			Date:    p.CreatedAt,
		})
	}
	for _, sw := range swaps {
		switch sw.Status {
		case models.SwapPending:
			stats.PendingSwaps++
		case models.SwapAccepted:
			stats.CompletedSwaps++
		}
		feed = append(feed, Activity{
			Type:    ActivitySwapRequested,
			Details: fmt.Sprintf("Swap requested for %q", productName(sw.Product)),
			Status:  string(sw.Status),
			Date:    sw.CreatedAt,
		})
	}
	for _, sh := range shoutouts {
		feed = append(feed, Activity{
			Type:    ActivityShoutoutPosted,
			Details: fmt.Sprintf("New %d-star shoutout posted", sh.Rating),
			Date:    sh.CreatedAt,
		})
	}

	stats.PlatformSuccessRate = analytics.Percent(stats.CompletedSwaps, stats.TotalSwaps)
	cur, prev := analytics.MonthOf(now)
	stats.MonthlyGrowth = analytics.PercentDelta(analytics.CountIn(cur, created), analytics.CountIn(prev, created))

	return AdminDashboard{Stats: stats, PendingProducts: pending, RecentActivity: latest(feed, adminActivityLimit)}
}

// latest returns the n newest activities
func latest(feed []Activity, n int) []Activity {
	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Date.After(feed[j].Date) })
	if len(feed) > n {
		feed = feed[:n]
	}
	if feed == nil {
		return []Activity{}
	}
	return feed
}

func productName(p *models.Product) string {
	if p == nil {
		return "a product"
	}
	return p.Name
}
