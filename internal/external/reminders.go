package external

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sort"
	"time"

	"dashboard/internal/types"
)

// DateLayout is the calendar date format accepted by the reminder route.
const DateLayout = "2006-01-02"

// reminderDefinition is one entry of the reminders file.
//
// A definition applies to a date when Dates lists it, or when DaysOfWeek
// (0=Sunday) contains its weekday. A definition with neither is daily.
type reminderDefinition struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Notes      string   `json:"notes,omitempty"`
	Time       string   `json:"time"` // HH:MM in the dashboard time zone
	DaysOfWeek []int    `json:"daysOfWeek,omitempty"`
	Dates      []string `json:"dates,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

type reminderFile struct {
	Reminders []reminderDefinition `json:"reminders"`
}

// FileReminderConfig configures the file-backed reminder provider.
type FileReminderConfig struct {
	Path     string
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// FileReminderProvider implements ReminderProvider by reading a JSON file of
// reminder definitions. The file is re-read on every call so edits take
// effect on the next cache refresh.
type FileReminderProvider struct {
	path   string
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewFileReminderProvider creates a FileReminderProvider.
func NewFileReminderProvider(cfg FileReminderConfig) *FileReminderProvider {
	p := &FileReminderProvider{
		path:   cfg.Path,
		loc:    cfg.Location,
		logger: cfg.Logger,
		now:    cfg.Now,
	}
	if p.loc == nil {
		p.loc = time.UTC
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// RemindersFor implements ReminderProvider. Reminders are ordered by due time.
func (p *FileReminderProvider) RemindersFor(ctx context.Context, date string) (types.ReminderPayload, error) {
	if err := ctx.Err(); err != nil {
		return types.ReminderPayload{}, err
	}

	day, err := time.ParseInLocation(DateLayout, date, p.loc)
	if err != nil {
		return types.ReminderPayload{}, types.NewAppError(types.ErrCodeInvalidRequest, "date must be YYYY-MM-DD", err)
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return types.ReminderPayload{}, types.NewProviderError("reminders-file", 0, err)
	}
	var file reminderFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return types.ReminderPayload{}, types.NewProviderError("reminders-file", 0, fmt.Errorf("parsing %s: %w", p.path, err))
	}

	reminders := make([]types.Reminder, 0, len(file.Reminders))
	for _, def := range file.Reminders {
		if !def.appliesOn(day, date) {
			continue
		}
		due, err := def.dueAt(day, p.loc)
		if err != nil {
			p.logger.WarnContext(ctx, "skipping reminder with invalid time",
				"reminder_id", def.ID,
				"time", def.Time,
				"error", err,
			)
			continue
		}
		reminders = append(reminders, types.Reminder{
			ID:       def.ID,
			Title:    def.Title,
			Notes:    def.Notes,
			DueAtIso: types.FormatISO(due),
			Tags:     def.Tags,
		})
	}
	sortReminders(reminders)

	return types.ReminderPayload{
		Date:           date,
		Reminders:      reminders,
		Provider:       "reminders-file",
		LastUpdatedIso: types.FormatISO(p.now()),
	}, nil
}

func (d reminderDefinition) appliesOn(day time.Time, date string) bool {
	if len(d.Dates) == 0 && len(d.DaysOfWeek) == 0 {
		return true
	}
	return slices.Contains(d.Dates, date) || slices.Contains(d.DaysOfWeek, int(day.Weekday()))
}

func (d reminderDefinition) dueAt(day time.Time, loc *time.Location) (time.Time, error) {
	hm, err := time.Parse("15:04", d.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

// sortReminders orders by due time, then ID for stability.
func sortReminders(rs []types.Reminder) {
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].DueAtIso != rs[j].DueAtIso {
			return rs[i].DueAtIso < rs[j].DueAtIso
		}
		return rs[i].ID < rs[j].ID
	})
}

var _ ReminderProvider = (*FileReminderProvider)(nil)
