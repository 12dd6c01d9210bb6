// Package catalog holds the project listing filter shared by the API's query
// string and by clients that filter an already fetched list.
package catalog

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type State string

const (
	StateAll     State = "all"
	StateActive  State = "active"
	StateExpired State = "expired"
)

type Sort string

const (
	SortNewest       Sort = "newest"
	SortBudgetAsc    Sort = "budget_asc"
	SortBudgetDesc   Sort = "budget_desc"
	SortDeadlineAsc  Sort = "deadline_asc"
	SortDeadlineDesc Sort = "deadline_desc"
)

// Filter narrows and orders a project listing. Zero values mean "no constraint".
type Filter struct {
	Search         string
	Category       string
	MinBudget      *float64
	MaxBudget      *float64
	DeadlineBefore *time.Time
	State          State
	Sort           Sort
}

// Item is the part of a listing the filter looks at.
type Item struct {
	Title     string
	Category  string
	Budget    float64
	Deadline  time.Time
	CreatedAt time.Time
}

// ParseQuery reads a Filter from query parameters. get is typically url.Values.Get
// or fiber's Ctx.Query.
func ParseQuery(get func(key string) string) (Filter, error) {
	f := Filter{
		Search:   strings.TrimSpace(get("q")),
		Category: strings.TrimSpace(get("category")),
		State:    StateAll,
		Sort:     SortNewest,
	}

	var err error
	if f.MinBudget, err = parseAmount(get("min_budget")); err != nil {
		return Filter{}, fmt.Errorf("min_budget: %w", err)
	}
	if f.MaxBudget, err = parseAmount(get("max_budget")); err != nil {
		return Filter{}, fmt.Errorf("max_budget: %w", err)
	}
	if f.MinBudget != nil && f.MaxBudget != nil && *f.MinBudget > *f.MaxBudget {
		return Filter{}, fmt.Errorf("min_budget is greater than max_budget")
	}

	if v := strings.TrimSpace(get("deadline_before")); v != "" {
		d, err := time.Parse(DateLayout, v)
		if err != nil {
			return Filter{}, fmt.Errorf("deadline_before: expected YYYY-MM-DD")
		}
		f.DeadlineBefore = &d
	}

	if v := strings.TrimSpace(get("state")); v != "" {
		switch s := State(strings.ToLower(v)); s {
		case StateAll, StateActive, StateExpired:
			f.State = s
		default:
			return Filter{}, fmt.Errorf("state: unknown value %q", v)
		}
	}

	if v := strings.TrimSpace(get("sort")); v != "" {
		switch s := Sort(strings.ToLower(v)); s {
		case SortNewest, SortBudgetAsc, SortBudgetDesc, SortDeadlineAsc, SortDeadlineDesc:
			f.Sort = s
		default:
			return Filter{}, fmt.Errorf("sort: unknown value %q", v)
		}
	}

	return f, nil
}

func parseAmount(v string) (*float64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
		return nil, fmt.Errorf("expected a non-negative number")
	}
	return &n, nil
}

// Query encodes f back into query parameters, omitting defaults.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.MinBudget != nil {
		q.Set("min_budget", strconv.FormatFloat(*f.MinBudget, 'f', -1, 64))
	}
	if f.MaxBudget != nil {
		q.Set("max_budget", strconv.FormatFloat(*f.MaxBudget, 'f', -1, 64))
	}
	if f.DeadlineBefore != nil {
		q.Set("deadline_before", f.DeadlineBefore.Format(DateLayout))
	}
	if f.State != "" && f.State != StateAll {
		q.Set("state", string(f.State))
	}
	if f.Sort != "" && f.Sort != SortNewest {
		q.Set("sort", string(f.Sort))
	}
	return q
}

// Today is the first date that still counts as active on now's UTC calendar day.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Match reports whether it passes every constraint of f.
func (f Filter) Match(it Item, now time.Time) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(it.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.Category != "" && it.Category != f.Category {
		return false
	}
	if f.MinBudget != nil && it.Budget < *f.MinBudget {
		return false
	}
	if f.MaxBudget != nil && it.Budget > *f.MaxBudget {
		return false
	}
	deadline := Today(it.Deadline)
	if f.DeadlineBefore != nil && deadline.After(Today(*f.DeadlineBefore)) {
		return false
	}
	switch f.State {
	case StateActive:
		return !deadline.Before(Today(now))
	case StateExpired:
		return deadline.Before(Today(now))
	}
	return true
}

// Apply returns the items of list that match f, ordered by f.Sort. The input is not modified.
func Apply[T any](list []T, view func(T) Item, f Filter, now time.Time) []T {
	out := make([]T, 0, len(list))
	for _, v := range list {
		if f.Match(view(v), now) {
			out = append(out, v)
		}
	}

	var less func(a, b Item) bool
	switch f.Sort {
	case SortBudgetAsc:
		less = func(a, b Item) bool { return a.Budget < b.Budget }
	case SortBudgetDesc:
		less = func(a, b Item) bool { return a.Budget > b.Budget }
	case SortDeadlineAsc:
		less = func(a, b Item) bool { return a.Deadline.Before(b.Deadline) }
	case SortDeadlineDesc:
		less = func(a, b Item) bool { return a.Deadline.After(b.Deadline) }
	case SortNewest:
		less = func(a, b Item) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(view(out[i]), view(out[j])) })
	return out
}
