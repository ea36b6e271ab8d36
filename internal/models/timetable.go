package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Weekday enumerates the teaching days of a week.
type Weekday string

const (
	WeekdayMonday    Weekday = "MONDAY"
	WeekdayTuesday   Weekday = "TUESDAY"
	WeekdayWednesday Weekday = "WEDNESDAY"
	WeekdayThursday  Weekday = "THURSDAY"
	WeekdayFriday    Weekday = "FRIDAY"
	WeekdaySaturday  Weekday = "SATURDAY"
)

// Weekdays lists the days rendered by the timetable grid in display order.
var Weekdays = []Weekday{
	WeekdayMonday,
	WeekdayTuesday,
	WeekdayWednesday,
	WeekdayThursday,
	WeekdayFriday,
	WeekdaySaturday,
}

// Valid reports whether the weekday belongs to the closed set.
func (d Weekday) Valid() bool {
	for _, day := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// GroupType distinguishes lecture, discussion and lab sections.
type GroupType string

const (
	GroupTypeLecture    GroupType = "GT"
	GroupTypeDiscussion GroupType = "GD"
	GroupTypeLab        GroupType = "GL"
)

// GroupTypes is the fixed processing order for group types.
var GroupTypes = []GroupType{GroupTypeLecture, GroupTypeDiscussion, GroupTypeLab}

// Valid reports whether the group type is one of GT, GD or GL.
func (t GroupType) Valid() bool {
	switch t {
	case GroupTypeLecture, GroupTypeDiscussion, GroupTypeLab:
		return true
	}
	return false
}

// TimeConfig drives slot generation for a day.
type TimeConfig struct {
	FirstStart  string `json:"first_start" validate:"required"`
	DurationMin int    `json:"duration_min"`
	BreakMin    int    `json:"break_min"`
}

// TimeSlot is a fixed interval of the day expressed as "HH:mm" boundaries.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Occurrence is one weekly meeting of a group.
type Occurrence struct {
	Day   Weekday `json:"day" validate:"required"`
	Start string  `json:"start" validate:"required"`
	End   string  `json:"end" validate:"required"`
}

// Group is an offered section of a subject.
type Group struct {
	Type        GroupType    `json:"type" validate:"required"`
	Number      int          `json:"number" validate:"required,min=1"`
	Room        string       `json:"room"`
	Occurrences []Occurrence `json:"occurrences" validate:"dive"`
}

// Groups is stored as a JSONB column on subjects.
type Groups []Group

// Value implements driver.Valuer.
func (g Groups) Value() (driver.Value, error) {
	if g == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(g)
}

// Scan implements sql.Scanner.
func (g *Groups) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan groups: %w", err)
	}
	if len(raw) == 0 {
		*g = Groups{}
		return nil
	}
	var decoded Groups
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode groups: %w", err)
	}
	if decoded == nil {
		decoded = Groups{}
	}
	*g = decoded
	return nil
}

// GroupPick holds the chosen group number per type for one subject.
type GroupPick struct {
	GT *int `json:"GT,omitempty"`
	GD *int `json:"GD,omitempty"`
	GL *int `json:"GL,omitempty"`
}

// Number returns the chosen number for a type.
func (p GroupPick) Number(t GroupType) (int, bool) {
	var n *int
	switch t {
	case GroupTypeLecture:
		n = p.GT
	case GroupTypeDiscussion:
		n = p.GD
	case GroupTypeLab:
		n = p.GL
	}
	if n == nil {
		return 0, false
	}
	return *n, true
}

// With returns a copy of the pick with the given type set to number.
func (p GroupPick) With(t GroupType, number int) GroupPick {
	n := number
	switch t {
	case GroupTypeLecture:
		p.GT = &n
	case GroupTypeDiscussion:
		p.GD = &n
	case GroupTypeLab:
		p.GL = &n
	}
	return p
}

// GroupSelection maps subject id to the picks for that subject.
type GroupSelection map[string]GroupPick

// Clone returns a shallow copy safe to patch without touching the receiver.
func (s GroupSelection) Clone() GroupSelection {
	out := make(GroupSelection, len(s))
	for id, pick := range s {
		out[id] = pick
	}
	return out
}

// Value implements driver.Valuer.
func (s GroupSelection) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *GroupSelection) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan group selection: %w", err)
	}
	decoded := GroupSelection{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("decode group selection: %w", err)
		}
	}
	if decoded == nil {
		decoded = GroupSelection{}
	}
	*s = decoded
	return nil
}

// ScheduleEntry is one rendered cell of the timetable.
type ScheduleEntry struct {
	SubjectID string    `json:"subject_id"`
	Code      string    `json:"code"`
	Type      GroupType `json:"type"`
	Number    int       `json:"number"`
	Room      string    `json:"room"`
	Day       Weekday   `json:"day"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
}

// Conflict groups the entries sharing the same day and slot.
type Conflict struct {
	Day     Weekday         `json:"day"`
	Start   string          `json:"start"`
	End     string          `json:"end"`
	Entries []ScheduleEntry `json:"entries"`
}

// Career carries the institutional time configuration.
type Career struct {
	ID          string `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	FirstStart  string `db:"first_start" json:"first_start"`
	DurationMin int    `db:"duration_min" json:"duration_min"`
	BreakMin    int    `db:"break_min" json:"break_min"`
}

// TimeConfigOverride is a student's partial override of the career config.
type TimeConfigOverride struct {
	FirstStart  *string `json:"first_start,omitempty"`
	DurationMin *int    `json:"duration_min,omitempty"`
	BreakMin    *int    `json:"break_min,omitempty"`
}

// IsEmpty reports whether the override sets no field at all.
func (o *TimeConfigOverride) IsEmpty() bool {
	return o == nil || (o.FirstStart == nil && o.DurationMin == nil && o.BreakMin == nil)
}

// Value implements driver.Valuer. A nil override is stored as NULL.
func (o *TimeConfigOverride) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// Scan implements sql.Scanner.
func (o *TimeConfigOverride) Scan(src interface{}) error {
	raw, err := jsonBytes(src)
	if err != nil {
		return fmt.Errorf("scan config override: %w", err)
	}
	if len(raw) == 0 {
		*o = TimeConfigOverride{}
		return nil
	}
	return json.Unmarshal(raw, o)
}

// StudentTimetable is the persisted selection state of one student.
type StudentTimetable struct {
	StudentID      string              `db:"student_id" json:"student_id"`
	CareerID       string              `db:"career_id" json:"career_id"`
	SubjectIDs     []string            `db:"-" json:"subject_ids"`
	GroupSelection GroupSelection      `db:"group_selection" json:"group_selection"`
	ConfigOverride *TimeConfigOverride `db:"config_override" json:"config_override,omitempty"`
	// Version increases on every write; zero means nothing is stored yet.
	Version        int64               `db:"version" json:"version"`
	UpdatedAt      time.Time           `db:"updated_at" json:"updated_at"`
}

func jsonBytes(src interface{}) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T", src)
	}
}
