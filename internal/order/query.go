package order

import (
	"strings"
	"time"
)

const (
	defaultUserPageSize  = 3
	defaultAdminPageSize = 10
	maxPageSize          = 100
	statusAll            = "all"
)

// UserListQuery is the caller's own order listing.
type UserListQuery struct {
	Keyword string
	Status  string
	Sort    string
	Page    int
	Limit   int
}

// AdminListQuery lists every order. From/To widen to whole days and default
// to the trailing revenue window.
type AdminListQuery struct {
	Keyword       string
	Statuses      []string
	PaymentMethod string
	From          *time.Time
	To            *time.Time
	Sort          string
	Page          int
	Limit         int
}

type PageQuery struct {
	Page  int
	Limit int
}

var userSorts = map[string]string{
	"newest":  "o.order_date DESC",
	"oldest":  "o.order_date ASC",
	"highest": "o.total DESC",
	"lowest":  "o.total ASC",
}

var adminSorts = map[string]string{
	"orderdate_asc":      "o.order_date ASC",
	"orderdate_desc":     "o.order_date DESC",
	"total_asc":          "o.total ASC",
	"total_desc":         "o.total DESC",
	"currentstatus_asc":  "o.current_status ASC",
	"currentstatus_desc": "o.current_status DESC",
}

func resolveSort(sorts map[string]string, key, fallback string) string {
	if clause, ok := sorts[strings.ToLower(strings.TrimSpace(key))]; ok {
		return clause
	}
	return fallback
}

// normalizePage clamps a 0-based page and a page size.
func normalizePage(page, limit, fallback int) (int, int) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// parseStatusFilter maps raw statuses to enum values. "All" or blank means
// no status filter.
func parseStatusFilter(raw []string) ([]Status, error) {
	var out []Status
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" || strings.EqualFold(r, statusAll) {
			continue
		}
		st, ok := ParseStatus(r)
		if !ok {
			return nil, ErrInvalidStatus
		}
		out = append(out, st)
	}
	return out, nil
}
