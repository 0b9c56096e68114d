// Package queueview derives dashboard views from a booking collection. Every
// function is pure and tolerates malformed input.
package queueview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

type Tab string

const (
	TabPreBooked Tab = "pre-booked"
	TabInOffice  Tab = "in-office"
	TabCompleted Tab = "completed"
)

func Tabs() []Tab {
	return []Tab{TabPreBooked, TabInOffice, TabCompleted}
}

func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab: %s", s)
}

// TabOf returns the tab an online booking belongs to. Bookings that are not
// online belong to no tab.
func TabOf(b *model.Booking) (Tab, bool) {
	if b == nil || !b.IsOnline() {
		return "", false
	}
	switch b.Status {
	case model.StatusIntake, model.StatusReadyForProvider, model.StatusProvider:
		return TabInOffice, true
	case model.StatusReadyForDischarge, model.StatusDischarged:
		return TabCompleted, true
	default:
		return TabPreBooked, true
	}
}

// TabBookings returns the online bookings shown on tab, preserving order.
// Unknown tabs yield an empty result.
func TabBookings(bookings []*model.Booking, tab Tab) []*model.Booking {
	out := make([]*model.Booking, 0)
	for _, b := range bookings {
		if t, ok := TabOf(b); ok && t == tab {
			out = append(out, b)
		}
	}
	return out
}

// FilterBookings applies status, provider and patient search filters in that order.
func FilterBookings(bookings []*model.Booking, f model.QueueFilters) []*model.Booking {
	filtered := bookings

	if len(f.Statuses) > 0 {
		allowed := make(map[model.Status]struct{}, len(f.Statuses))
		for _, s := range f.Statuses {
			allowed[s] = struct{}{}
		}
		filtered = keep(filtered, func(b *model.Booking) bool {
			_, ok := allowed[b.Status]
			return ok
		})
	}

	if f.ProviderName != nil && *f.ProviderName != "" {
		want := *f.ProviderName
		filtered = keep(filtered, func(b *model.Booking) bool {
			return b.ProviderName != nil && *b.ProviderName == want
		})
	}

	if f.PatientNameSearch != "" {
		q := strings.ToLower(f.PatientNameSearch)
		filtered = keep(filtered, func(b *model.Booking) bool {
			if b.Patient == nil {
				return false
			}
			return strings.Contains(strings.ToLower(b.Patient.FullName), q) ||
				strings.Contains(strings.ToLower(b.Patient.Email), q)
		})
	}

	return filtered
}

func keep(bookings []*model.Booking, pred func(*model.Booking) bool) []*model.Booking {
	out := make([]*model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b != nil && pred(b) {
			out = append(out, b)
		}
	}
	return out
}

// Group is one collapsible section of the in-office tab.
type Group struct {
	Status   model.Status     `json:"status"`
	Title    string           `json:"title"`
	Count    int              `json:"count"`
	Bookings []*model.Booking `json:"bookings"`
}

var inOfficeGroups = []struct {
	status model.Status
	title  string
}{
	{model.StatusIntake, "In Intake"},
	{model.StatusReadyForProvider, "Ready for Provider"},
	{model.StatusProvider, "In Call"},
}

// GroupInOffice partitions bookings by exact status into the three in-office
// sections. Bookings in other statuses are ignored.
func GroupInOffice(bookings []*model.Booking) []Group {
	groups := make([]Group, len(inOfficeGroups))
	index := make(map[model.Status]int, len(inOfficeGroups))
	for i, g := range inOfficeGroups {
		groups[i] = Group{Status: g.status, Title: g.title, Bookings: []*model.Booking{}}
		index[g.status] = i
	}
	for _, b := range bookings {
		if b == nil {
			continue
		}
		if i, ok := index[b.Status]; ok {
			groups[i].Bookings = append(groups[i].Bookings, b)
			groups[i].Count++
		}
	}
	return groups
}

// ComputeStats counts every booking by status and type.
func ComputeStats(bookings []*model.Booking) model.BookingStats {
	stats := model.NewBookingStats()
	for _, b := range bookings {
		if b == nil {
			continue
		}
		stats.Total++
		stats.ByStatus[b.Status]++
		stats.ByType[b.BookingType]++
	}
	return stats
}

// ComputeQueueStats counts online bookings per status.
func ComputeQueueStats(bookings []*model.Booking) model.QueueStats {
	var stats model.QueueStats
	for _, b := range bookings {
		if b != nil && b.IsOnline() {
			stats.Add(b.Status)
		}
	}
	return stats
}

// ActiveQueue groups online bookings in the four active queue stages.
func ActiveQueue(bookings []*model.Booking) model.QueueGroups {
	groups := model.QueueGroups{
		Confirmed:        []*model.Booking{},
		Intake:           []*model.Booking{},
		ReadyForProvider: []*model.Booking{},
		Provider:         []*model.Booking{},
	}
	for _, b := range bookings {
		if b == nil || !b.IsOnline() {
			continue
		}
		switch b.Status {
		case model.StatusConfirmed:
			groups.Confirmed = append(groups.Confirmed, b)
		case model.StatusIntake:
			groups.Intake = append(groups.Intake, b)
		case model.StatusReadyForProvider:
			groups.ReadyForProvider = append(groups.ReadyForProvider, b)
		case model.StatusProvider:
			groups.Provider = append(groups.Provider, b)
		}
	}
	return groups
}

// Providers lists the distinct provider names, sorted.
func Providers(bookings []*model.Booking) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, b := range bookings {
		if b == nil || b.ProviderName == nil || *b.ProviderName == "" {
			continue
		}
		if _, ok := seen[*b.ProviderName]; ok {
			continue
		}
		seen[*b.ProviderName] = struct{}{}
		out = append(out, *b.ProviderName)
	}
	sort.Strings(out)
	return out
}

// WaitTime is measured in whole minutes.
type WaitTime struct {
	Current int `json:"current_wait"`
	Total   int `json:"total_wait"`
}

// WaitTimes measures how long a booking has waited past its appointment and
// since it was created. The appointment is read in now's location.
func WaitTimes(b *model.Booking, now time.Time) WaitTime {
	var w WaitTime
	if b == nil {
		return w
	}
	if at, ok := b.ScheduledAt(); ok {
		local := time.Date(at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), 0, now.Location())
		w.Current = wholeMinutes(now.Sub(local))
	}
	if !b.CreatedAt.IsZero() {
		w.Total = wholeMinutes(now.Sub(b.CreatedAt))
	}
	return w
}

func wholeMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Minute)
}

// FormatDuration renders minutes as "45m", "2h" or "1h 5m".
func FormatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours, rest := minutes/60, minutes%60
	if rest > 0 {
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
	return fmt.Sprintf("%dh", hours)
}
