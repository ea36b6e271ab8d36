package service

import "github.com/noah-isme/horario-api/internal/models"

// DefaultProposal picks, per subject, the first stored group of each type. Subjects
// without a lecture (GT) group are left out of the result.
func DefaultProposal(subjects []models.Subject, subjectIDs []string) models.GroupSelection {
	byID := indexSubjects(subjects)
	out := models.GroupSelection{}

	for _, id := range subjectIDs {
		subject, ok := byID[id]
		if !ok {
			continue
		}
		var pick models.GroupPick
		for _, group := range subject.Groups {
			if _, taken := pick.Number(group.Type); taken {
				continue
			}
			pick = pick.With(group.Type, group.Number)
		}
		if _, ok := pick.Number(models.GroupTypeLecture); ok {
			out[id] = pick
		}
	}
	return out
}

// NeedsDefaultProposal reports whether any selected subject lacks a GT pick.
func NeedsDefaultProposal(subjectIDs []string, selection models.GroupSelection) bool {
	for _, id := range subjectIDs {
		pick, ok := selection[id]
		if !ok {
			return true
		}
		if _, ok := pick.Number(models.GroupTypeLecture); !ok {
			return true
		}
	}
	return false
}

// ReseedSelection keeps the picks of selected subjects that already have a GT group and
// fills the others from DefaultProposal. Picks of unselected subjects are dropped.
func ReseedSelection(subjects []models.Subject, subjectIDs []string, current models.GroupSelection) models.GroupSelection {
	proposal := DefaultProposal(subjects, subjectIDs)
	out := models.GroupSelection{}
	for _, id := range subjectIDs {
		if pick, ok := current[id]; ok {
			if _, hasGT := pick.Number(models.GroupTypeLecture); hasGT {
				out[id] = pick
				continue
			}
		}
		if pick, ok := proposal[id]; ok {
			out[id] = pick
		}
	}
	return out
}
