package service

import "github.com/noah-isme/horario-api/internal/models"

// BuildEntries projects the selected groups of the selected subjects into timetable
// entries. Output order is subject (selection order), then type (GT, GD, GL), then
// occurrence order. Unknown subject ids and group numbers are skipped.
func BuildEntries(subjects []models.Subject, subjectIDs []string, selection models.GroupSelection) []models.ScheduleEntry {
	byID := indexSubjects(subjects)
	entries := make([]models.ScheduleEntry, 0)

	for _, id := range subjectIDs {
		subject, ok := byID[id]
		if !ok {
			continue
		}
		pick := selection[id]
		for _, groupType := range models.GroupTypes {
			number, ok := pick.Number(groupType)
			if !ok {
				continue
			}
			group := findGroup(subject, groupType, number)
			if group == nil {
				continue
			}
			entries = appendGroupEntries(entries, subject, *group)
		}
	}
	return entries
}

// PreviewEntries lists the entries of every group of a single subject, used by the
// subject editor to spot overlaps between its own groups.
func PreviewEntries(subject models.Subject) []models.ScheduleEntry {
	entries := make([]models.ScheduleEntry, 0)
	for _, group := range subject.Groups {
		entries = appendGroupEntries(entries, &subject, group)
	}
	return entries
}

func appendGroupEntries(entries []models.ScheduleEntry, subject *models.Subject, group models.Group) []models.ScheduleEntry {
	for _, occ := range group.Occurrences {
		entries = append(entries, models.ScheduleEntry{
			SubjectID: subject.ID,
			Code:      subject.Code,
			Type:      group.Type,
			Number:    group.Number,
			Room:      group.Room,
			Day:       occ.Day,
			Start:     occ.Start,
			End:       occ.End,
		})
	}
	return entries
}

func indexSubjects(subjects []models.Subject) map[string]*models.Subject {
	byID := make(map[string]*models.Subject, len(subjects))
	for i := range subjects {
		byID[subjects[i].ID] = &subjects[i]
	}
	return byID
}

func findGroup(subject *models.Subject, groupType models.GroupType, number int) *models.Group {
	for i := range subject.Groups {
		if subject.Groups[i].Type == groupType && subject.Groups[i].Number == number {
			return &subject.Groups[i]
		}
	}
	return nil
}
