package dto

import "github.com/noah-isme/horario-api/internal/models"

// PaletteSize is the number of colours the grid cycles through.
const PaletteSize = 8

// Time configuration sources, from outermost to innermost.
const (
	ConfigSourceOverride = "override"
	ConfigSourceCareer   = "career"
	ConfigSourceDefault  = "default"
)

// EvaluateRequest carries a full in-memory snapshot for stateless evaluation.
type EvaluateRequest struct {
	Subjects       []models.Subject      `json:"subjects" validate:"dive"`
	SubjectIDs     []string              `json:"subject_ids"`
	GroupSelection models.GroupSelection `json:"group_selection"`
}

// EvaluateResponse returns the projected entries and their collisions.
type EvaluateResponse struct {
	Entries   []models.ScheduleEntry `json:"entries"`
	Conflicts []models.Conflict      `json:"conflicts"`
}

// ProposalRequest asks for the default group proposal of a subject selection.
type ProposalRequest struct {
	Subjects   []models.Subject `json:"subjects" validate:"dive"`
	SubjectIDs []string         `json:"subject_ids"`
}

// WouldConflictRequest evaluates a single hypothetical group change.
type WouldConflictRequest struct {
	Subjects       []models.Subject      `json:"subjects" validate:"dive"`
	SubjectIDs     []string              `json:"subject_ids"`
	GroupSelection models.GroupSelection `json:"group_selection"`
	SubjectID      string                `json:"subject_id" validate:"required"`
	Type           models.GroupType      `json:"type" validate:"required"`
	Number         int                   `json:"number" validate:"required,min=1"`
}

// WouldConflictResponse answers a what-if query.
type WouldConflictResponse struct {
	WouldConflict bool `json:"would_conflict"`
}

// TimeConfigResponse reports the effective configuration and where it came from.
type TimeConfigResponse struct {
	Config models.TimeConfig `json:"config"`
	Source string            `json:"source"`
}

// TimetableView is everything the grid needs to render a student's week.
type TimetableView struct {
	StudentID      string                 `json:"student_id"`
	CareerID       string                 `json:"career_id"`
	Config         models.TimeConfig      `json:"config"`
	Slots          []models.TimeSlot      `json:"slots"`
	Days           []models.Weekday       `json:"days"`
	SubjectIDs     []string               `json:"subject_ids"`
	GroupSelection models.GroupSelection  `json:"group_selection"`
	Colors         map[string]int         `json:"colors"`
	Entries        []models.ScheduleEntry `json:"entries"`
	Conflicts      []models.Conflict      `json:"conflicts"`
	// Unaligned lists entries that match no row of Slots, which happens when a
	// student override moves the grid away from the career's published times.
	Unaligned      []models.ScheduleEntry `json:"unaligned"`
}

// UpdateCareerRequest switches the career a student plans for.
type UpdateCareerRequest struct {
	CareerID string `json:"career_id" validate:"required"`
}

// UpdateSubjectSelectionRequest replaces the student's subject selection.
type UpdateSubjectSelectionRequest struct {
	SubjectIDs []string `json:"subject_ids" validate:"dive,required"`
}

// UpdateGroupRequest sets one group pick for one subject.
type UpdateGroupRequest struct {
	SubjectID string           `json:"subject_id" validate:"required"`
	Type      models.GroupType `json:"type" validate:"required"`
	Number    int              `json:"number" validate:"required,min=1"`
}

// SubjectGroupOptions lists selectable groups of one subject.
type SubjectGroupOptions struct {
	SubjectID string             `json:"subject_id"`
	Code      string             `json:"code"`
	Name      string             `json:"name"`
	Types     []GroupTypeOptions `json:"types"`
}

// GroupTypeOptions lists the groups of one type.
type GroupTypeOptions struct {
	Type    models.GroupType `json:"type"`
	Options []GroupOption    `json:"options"`
}

// GroupOption is one selectable group.
type GroupOption struct {
	Number        int    `json:"number"`
	Room          string `json:"room"`
	Selected      bool   `json:"selected"`
	WouldConflict bool   `json:"would_conflict"`
}

// SubjectRequest captures fields for creating or updating subjects.
type SubjectRequest struct {
	Code       string         `json:"code" validate:"required,max=32"`
	Name       string         `json:"name" validate:"required,max=255"`
	Instructor string         `json:"instructor" validate:"max=255"`
	Groups     []models.Group `json:"groups" validate:"dive"`
}

// ExportFile is a rendered timetable ready to be sent as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}
