// Package automode decides which display mode the dashboard shows based on
// configured weekly time windows.
package automode

// Mode is a dashboard display mode.
type Mode string

const (
	ModeDashboard  Mode = "dashboard"
	ModeNavigation Mode = "navigation"
	ModeAmbient    Mode = "ambient"
	ModeNight      Mode = "night"
)

// ClockTime is a wall-clock time of day on the dashboard clock.
type ClockTime struct {
	Hour   int `json:"hour" validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// TimeWindow selects Mode between StartTime (inclusive) and EndTime
// (exclusive) on each of DaysOfWeek (0=Sunday). A window whose start is
// after its end wraps past midnight: on each listed day it covers the hours
// from StartTime to midnight and from midnight to EndTime.
type TimeWindow struct {
	Name        string    `json:"name" validate:"required,max=64"`
	Mode        Mode      `json:"mode" validate:"required,oneof=dashboard navigation ambient night"`
	StartTime   ClockTime `json:"startTime"`
	EndTime     ClockTime `json:"endTime"`
	DaysOfWeek  []int     `json:"daysOfWeek" validate:"dive,min=0,max=6"`
	Description string    `json:"description,omitempty" validate:"max=256"`
}

// Config is the persisted auto-mode configuration.
type Config struct {
	Enabled               bool         `json:"enabled"`
	TimeWindows           []TimeWindow `json:"timeWindows" validate:"max=50,dive"`
	DefaultMode           Mode         `json:"defaultMode" validate:"required,oneof=dashboard navigation ambient night"`
	NavModeRefreshSeconds int          `json:"navModeRefreshSeconds" validate:"min=5,max=3600"`
}

// DefaultConfig is used until a configuration is saved.
func DefaultConfig() Config {
	return Config{
		Enabled:               false,
		TimeWindows:           []TimeWindow{},
		DefaultMode:           ModeDashboard,
		NavModeRefreshSeconds: 30,
	}
}
