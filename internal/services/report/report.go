package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/rajivgeraev/swapify-api/internal/analytics"
	"github.com/rajivgeraev/swapify-api/internal/models"
)

// DayRow is one day of the report series
type DayRow struct {
	Date           string `json:"date" csv:"date"`
	Products       int    `json:"products" csv:"products_submitted"`
	SwapsRequested int    `json:"swaps_requested" csv:"swaps_requested"`
	SwapsAccepted  int    `json:"swaps_accepted" csv:"swaps_accepted"`
	Shoutouts      int    `json:"shoutouts" csv:"shoutouts"`
	Signups        int    `json:"signups" csv:"signups"`
}

// KPI compares a count against the preceding window of the same length
type KPI struct {
	Current  int     `json:"current"`
	Previous int     `json:"previous"`
	Delta    float64 `json:"delta"`
}

// KPIs are the headline numbers of a report
type KPIs struct {
	Products       KPI `json:"products"`
	SwapsRequested KPI `json:"swaps_requested"`
	SwapsAccepted  KPI `json:"swaps_accepted"`
	Shoutouts      KPI `json:"shoutouts"`
	Signups        KPI `json:"signups"`
}

// TopProduct is a product ranked by swap requests in the range
type TopProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Swaps     int       `json:"swaps"`
	Shoutouts int       `json:"shoutouts"`
	AvgRating float64   `json:"avg_rating"`
}

// Report is the admin analytics report of one range
type Report struct {
	Range       analytics.Range `json:"range"`
	Days        int             `json:"days"`
	KPIs        KPIs            `json:"kpis"`
	Daily       []DayRow        `json:"daily"`
	TopProducts []TopProduct    `json:"top_products"`
}

// Data are the rows of the range and the window before it
type Data struct {
	Products  []models.Product
	Swaps     []models.Swap
	Shoutouts []models.Shoutout
	Signups   []time.Time
}

type series struct {
	products, requested, accepted, shoutouts, signups []time.Time
}

func (d Data) series() series {
	var s series
	for _, p := range d.Products {
		s.products = append(s.products, p.CreatedAt)
	}
	for _, sw := range d.Swaps {
		s.requested = append(s.requested, sw.CreatedAt)
		if sw.Status == models.SwapAccepted {
			s.accepted = append(s.accepted, sw.UpdatedAt)
		}
	}
	for _, sh := range d.Shoutouts {
		s.shoutouts = append(s.shoutouts, sh.CreatedAt)
	}
	s.signups = d.Signups
	return s
}

// Build computes the report of r in a single pass over data
func Build(r analytics.Range, data Data, top int) Report {
	s := data.series()
	prev := r.Previous()

	kpi := func(times []time.Time) KPI {
		cur, before := analytics.CountIn(r, times), analytics.CountIn(prev, times)
		return KPI{Current: cur, Previous: before, Delta: analytics.PercentDelta(cur, before)}
	}

	products := analytics.BucketByDay(r, s.products)
	requested := analytics.BucketByDay(r, s.requested)
	accepted := analytics.BucketByDay(r, s.accepted)
	shoutouts := analytics.BucketByDay(r, s.shoutouts)
	signups := analytics.BucketByDay(r, s.signups)

	daily := make([]DayRow, 0, r.Days())
	for i, key := range r.DayKeys() {
		daily = append(daily, DayRow{
			Date:           key,
			Products:       products[i],
			SwapsRequested: requested[i],
			SwapsAccepted:  accepted[i],
			Shoutouts:      shoutouts[i],
			Signups:        signups[i],
		})
	}

	return Report{
		Range: r,
		Days:  r.Days(),
		KPIs: KPIs{
			Products:       kpi(s.products),
			SwapsRequested: kpi(s.requested),
			SwapsAccepted:  kpi(s.accepted),
			Shoutouts:      kpi(s.shoutouts),
			Signups:        kpi(s.signups),
		},
		Daily:       daily,
		TopProducts: topProducts(r, data, top),
	}
}

func topProducts(r analytics.Range, data Data, top int) []TopProduct {
	counts := map[uuid.UUID]*analytics.Ranked{}
	for _, sw := range data.Swaps {
		if !r.Contains(sw.CreatedAt) {
			continue
		}
		item, ok := counts[sw.ProductID]
		if !ok {
			name := ""
			if sw.Product != nil {
				name = sw.Product.Name
			}
			item = &analytics.Ranked{Key: sw.ProductID.String(), Label: name}
			counts[sw.ProductID] = item
		}
		item.Count++
	}

	ratings := map[uuid.UUID][]int{}
	for _, sh := range data.Shoutouts {
		if r.Contains(sh.CreatedAt) {
			ratings[sh.ProductID] = append(ratings[sh.ProductID], sh.Rating)
		}
	}

	items := make([]analytics.Ranked, 0, len(counts))
	for _, item := range counts {
		items = append(items, *item)
	}

	list := []TopProduct{}
	for _, item := range analytics.TopN(items, top) {
		id := uuid.MustParse(item.Key)
		list = append(list, TopProduct{
			ProductID: id,
			Name:      item.Label,
			Swaps:     item.Count,
			Shoutouts: len(ratings[id]),
			AvgRating: analytics.MeanRating(ratings[id]),
		})
	}
	return list
}
