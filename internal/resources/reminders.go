package resources

import (
	"context"
	"slices"
	"strings"
	"time"

	"dashboard/internal/cache"
	"dashboard/internal/external"
	"dashboard/internal/types"
)

// ReminderQuery is the input of GET /reminder. An empty Date means today on
// the dashboard clock.
type ReminderQuery struct {
	Date         string `validate:"omitempty,datetime=2006-01-02"`
	ForceRefresh bool
}

// ReminderResponse is the body of GET /reminder. Overdue flags, OverdueCount
// and ServerTime reflect the moment of the response, not of the cached list.
type ReminderResponse struct {
	Date                string           `json:"date"`
	Reminders           []types.Reminder `json:"reminders"`
	Provider            string           `json:"provider"`
	LastUpdatedIso      string           `json:"lastUpdatedIso"`
	ExpiresAfterMinutes int              `json:"expiresAfterMinutes"`
	OverdueCount        int              `json:"overdueCount"`
	ServerTime          string           `json:"serverTime"`
	Cache               cache.Meta       `json:"cache"`
}

// Reminders returns the reminders due on a date.
func (s *Service) Reminders(ctx context.Context, q ReminderQuery) (*ReminderResponse, error) {
	now := s.fetcher.Now()

	date := strings.TrimSpace(q.Date)
	if date == "" {
		date = now.In(s.loc).Format(external.DateLayout)
	}
	if _, err := time.Parse(external.DateLayout, date); err != nil {
		return nil, types.NewAppError(types.ErrCodeInvalidRequest, "date must be YYYY-MM-DD", err)
	}

	res, err := cache.Fetch(ctx, s.fetcher, cache.Request[types.ReminderPayload]{
		Resource:     ResourceReminder,
		Key:          cache.ReminderKey(date),
		Policy:       s.policies.Reminder,
		ForceRefresh: q.ForceRefresh,
		Load: func(ctx context.Context) (types.ReminderPayload, error) {
			return s.providers.Reminders.RemindersFor(ctx, date)
		},
	})
	if err != nil {
		return nil, err
	}

	reminders, overdue := markOverdue(res.Payload.Reminders, now)

	return &ReminderResponse{
		Date:                res.Payload.Date,
		Reminders:           reminders,
		Provider:            res.Payload.Provider,
		LastUpdatedIso:      res.Payload.LastUpdatedIso,
		ExpiresAfterMinutes: expiresAfterMinutes(s.policies.Reminder.At(now).BaseTTL, res.Meta.AgeSeconds),
		OverdueCount:        overdue,
		ServerTime:          types.FormatISO(now),
		Cache:               res.Meta,
	}, nil
}

// markOverdue returns a copy of rs with Overdue set for every reminder due
// strictly before now. Unparseable due times are never overdue.
func markOverdue(rs []types.Reminder, now time.Time) ([]types.Reminder, int) {
	out := slices.Clone(rs)
	if out == nil {
		out = []types.Reminder{}
	}
	count := 0
	for i := range out {
		due, err := types.ParseISO(out[i].DueAtIso)
		out[i].Overdue = err == nil && due.Before(now)
		if out[i].Overdue {
			count++
		}
	}
	return out, count
}

// expiresAfterMinutes is the whole minutes, rounded up, until the served list
// stops being fresh.
func expiresAfterMinutes(ttl time.Duration, ageSeconds int64) int {
	remaining := int64(ttl/time.Second) - ageSeconds
	if remaining <= 0 {
		return 0
	}
	return int((remaining + 59) / 60)
}
