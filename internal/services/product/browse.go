package product

import (
	"sort"
	"strings"

	"github.com/spf13/cast"

	"github.com/rajivgeraev/swapify-api/internal/models"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Sort orders
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortName   = "name"
)

// BrowseQuery holds the filters of the product catalogue
type BrowseQuery struct {
	Query   string
	Type    string // all, manual or stripe
	Sort    string
	Page    int
	PerPage int
}

// ParseBrowseQuery reads the query parameters leniently. Unparsable or out-of-range
// paging values fall back to their defaults or bounds.
func ParseBrowseQuery(q, typ, sortBy, page, perPage string) (BrowseQuery, bool) {
	bq := BrowseQuery{
		Query:   strings.TrimSpace(q),
		Type:    strings.ToLower(strings.TrimSpace(typ)),
		Sort:    strings.ToLower(strings.TrimSpace(sortBy)),
		Page:    1,
		PerPage: defaultPerPage,
	}

	if bq.Type == "" {
		bq.Type = "all"
	}
	if bq.Type != "all" && !models.RedemptionType(bq.Type).Valid() {
		return bq, false
	}

	switch bq.Sort {
	case "":
		bq.Sort = SortNewest
	case SortNewest, SortOldest, SortName:
	default:
		return bq, false
	}

	if n, err := cast.ToIntE(page); err == nil && n > 0 {
		bq.Page = n
	}
	if n, err := cast.ToIntE(perPage); err == nil && n > 0 {
		bq.PerPage = n
	}
	if bq.PerPage > maxPerPage {
		bq.PerPage = maxPerPage
	}

	return bq, true
}

// FilterProducts applies the search, type filter and sort order to the products
func FilterProducts(products []models.Product, bq BrowseQuery) []models.Product {
	term := strings.ToLower(bq.Query)

	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if bq.Type != "" && bq.Type != "all" && string(p.RedemptionType) != bq.Type {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description+" "+p.Tags), term) {
			continue
		}
		filtered = append(filtered, p)
	}

	switch bq.Sort {
	case SortOldest:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].CreatedAt.Before(filtered[j].CreatedAt) })
	case SortName:
		sort.SliceStable(filtered, func(i, j int) bool {
			return strings.ToLower(filtered[i].Name) < strings.ToLower(filtered[j].Name)
		})
	default:
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	}

	return filtered
}

// Page is one page of results
type Page struct {
	Items      []models.Product `json:"items"`
	Page       int              `json:"page"`
	PerPage    int              `json:"per_page"`
	Total      int              `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// Paginate cuts one page out of the products
func Paginate(products []models.Product, page, perPage int) Page {
	total := len(products)
	totalPages := (total + perPage - 1) / perPage

	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	return Page{
		Items:      products[start:end],
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	}
}
