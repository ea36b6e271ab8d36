package service

import "github.com/noah-isme/horario-api/internal/models"

type conflictKey struct {
	Day   models.Weekday
	Start string
	End   string
}

func entryKey(entry models.ScheduleEntry) conflictKey {
	return conflictKey{Day: entry.Day, Start: entry.Start, End: entry.End}
}

// DetectConflicts groups entries by exact (day, start, end) and returns one conflict per
// key shared by two or more entries, in first-encounter order.
func DetectConflicts(entries []models.ScheduleEntry) []models.Conflict {
	buckets := make(map[conflictKey][]models.ScheduleEntry, len(entries))
	order := make([]conflictKey, 0, len(entries))
	for _, entry := range entries {
		key := entryKey(entry)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], entry)
	}

	conflicts := make([]models.Conflict, 0)
	for _, key := range order {
		list := buckets[key]
		if len(list) < 2 {
			continue
		}
		conflicts = append(conflicts, models.Conflict{
			Day:     key.Day,
			Start:   key.Start,
			End:     key.End,
			Entries: list,
		})
	}
	return conflicts
}

// IsEntryInConflict matches on the time key only, so every entry sharing a
// conflicting slot is reported, whichever subject it belongs to.
func IsEntryInConflict(entry models.ScheduleEntry, conflicts []models.Conflict) bool {
	key := entryKey(entry)
	for _, c := range conflicts {
		if c.Day == key.Day && c.Start == key.Start && c.End == key.End {
			return true
		}
	}
	return false
}
