package service

import (
	"fmt"

	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
)

// DayBoundaryMinutes is the latest minute (22:00) a slot may end at.
const DayBoundaryMinutes = 22 * 60

// Built-in time configuration used when neither career nor student provide one.
const (
	DefaultFirstStart  = "06:20"
	DefaultDurationMin = 100
	DefaultBreakMin    = 5
)

// DefaultTimeConfig returns the built-in slot configuration.
func DefaultTimeConfig() models.TimeConfig {
	return models.TimeConfig{
		FirstStart:  DefaultFirstStart,
		DurationMin: DefaultDurationMin,
		BreakMin:    DefaultBreakMin,
	}
}

// ParseClock converts a strict "HH:mm" 24-hour string into minutes since midnight.
func ParseClock(value string) (int, error) {
	if len(value) != 5 || value[2] != ':' {
		return 0, fmt.Errorf("time %q must use HH:mm", value)
	}
	digits := [4]byte{value[0], value[1], value[3], value[4]}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, fmt.Errorf("time %q must use HH:mm", value)
		}
	}
	hours := int(value[0]-'0')*10 + int(value[1]-'0')
	minutes := int(value[3]-'0')*10 + int(value[4]-'0')
	if hours > 23 || minutes > 59 {
		return 0, fmt.Errorf("time %q is out of range", value)
	}
	return hours*60 + minutes, nil
}

// FormatClock renders minutes since midnight as "HH:mm".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidateTimeConfig rejects structurally invalid configurations.
func ValidateTimeConfig(cfg models.TimeConfig) error {
	if _, err := ParseClock(cfg.FirstStart); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidConfig.Code, appErrors.ErrInvalidConfig.Status, "first_start must be a valid HH:mm time")
	}
	if cfg.DurationMin <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "duration_min must be greater than zero")
	}
	if cfg.BreakMin < 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfig, "break_min must not be negative")
	}
	return nil
}

// GenerateSlots returns the ordered slots of a day for the configuration. Every slot
// fits entirely before DayBoundaryMinutes.
func GenerateSlots(cfg models.TimeConfig) ([]models.TimeSlot, error) {
	if err := ValidateTimeConfig(cfg); err != nil {
		return nil, err
	}
	clock, _ := ParseClock(cfg.FirstStart)

	slots := []models.TimeSlot{}
	// Compare against the remaining minutes so large durations or breaks cannot overflow.
	for cfg.DurationMin <= DayBoundaryMinutes-clock {
		end := clock + cfg.DurationMin
		slots = append(slots, models.TimeSlot{
			Start: FormatClock(clock),
			End:   FormatClock(end),
		})
		if cfg.BreakMin > DayBoundaryMinutes-end {
			break
		}
		clock = end + cfg.BreakMin
	}
	return slots, nil
}

// IsAlignedSlot reports whether start/end match one of the slots exactly.
func IsAlignedSlot(start, end string, slots []models.TimeSlot) bool {
	for _, slot := range slots {
		if slot.Start == start && slot.End == end {
			return true
		}
	}
	return false
}
