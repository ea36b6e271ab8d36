package service

import (
	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
)

// WouldConflict reports whether choosing group (groupType, number) for subjectID makes
// that group collide with another entry. The selection argument is not modified.
func WouldConflict(
	subjects []models.Subject,
	subjectIDs []string,
	selection models.GroupSelection,
	subjectID string,
	groupType models.GroupType,
	number int,
) bool {
	patched := selection.Clone()
	patched[subjectID] = patched[subjectID].With(groupType, number)

	conflicts := DetectConflicts(BuildEntries(subjects, subjectIDs, patched))
	for _, c := range conflicts {
		for _, e := range c.Entries {
			if e.SubjectID == subjectID && e.Type == groupType && e.Number == number {
				return true
			}
		}
	}
	return false
}

// GroupOptions lists, for every selected subject and group type, the groups a student
// can switch to together with whether each choice would collide.
func GroupOptions(subjects []models.Subject, subjectIDs []string, selection models.GroupSelection) []dto.SubjectGroupOptions {
	byID := indexSubjects(subjects)
	out := make([]dto.SubjectGroupOptions, 0, len(subjectIDs))

	for _, id := range subjectIDs {
		subject, ok := byID[id]
		if !ok {
			continue
		}
		item := dto.SubjectGroupOptions{
			SubjectID: subject.ID,
			Code:      subject.Code,
			Name:      subject.Name,
			Types:     make([]dto.GroupTypeOptions, 0, len(models.GroupTypes)),
		}
		current := selection[id]
		for _, groupType := range models.GroupTypes {
			chosen, hasChoice := current.Number(groupType)
			typeOptions := dto.GroupTypeOptions{Type: groupType, Options: []dto.GroupOption{}}
			for _, group := range subject.Groups {
				if group.Type != groupType {
					continue
				}
				typeOptions.Options = append(typeOptions.Options, dto.GroupOption{
					Number:        group.Number,
					Room:          group.Room,
					Selected:      hasChoice && chosen == group.Number,
					WouldConflict: WouldConflict(subjects, subjectIDs, selection, id, groupType, group.Number),
				})
			}
			if len(typeOptions.Options) > 0 {
				item.Types = append(item.Types, typeOptions)
			}
		}
		out = append(out, item)
	}
	return out
}

// SubjectColors assigns palette indexes in selection order.
func SubjectColors(subjectIDs []string) map[string]int {
	colors := make(map[string]int, len(subjectIDs))
	for i, id := range subjectIDs {
		colors[id] = i % dto.PaletteSize
	}
	return colors
}
