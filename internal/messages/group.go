package messages

import (
	"sort"
	"time"

	"agora/internal/models"
)

// Group is a run of messages sharing a calendar day, in timestamp order.
type Group struct {
	Label    string
	Messages []models.Message
}

// GroupByDay buckets messages by calendar day in now's location, oldest day
// first. Labels are "Today", "Yesterday", "January 2" within now's year, and
// "January 2, 2006" otherwise. Pure: the input slice is not modified.
func GroupByDay(msgs []models.Message, now time.Time) []Group {
	if len(msgs) == 0 {
		return nil
	}

	sorted := make([]models.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	loc := now.Location()
	today := dayOf(now)
	yesterday := dayOf(now.AddDate(0, 0, -1))

	var groups []Group
	var currentDay time.Time
	for _, msg := range sorted {
		local := msg.CreatedAt.In(loc)
		day := dayOf(local)
		if len(groups) == 0 || !day.Equal(currentDay) {
			groups = append(groups, Group{Label: dayLabel(local, day, today, yesterday)})
			currentDay = day
		}
		groups[len(groups)-1].Messages = append(groups[len(groups)-1].Messages, msg)
	}
	return groups
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayLabel(local time.Time, day, today, yesterday time.Time) string {
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(yesterday):
		return "Yesterday"
	case local.Year() == today.Year():
		return local.Format("January 2")
	default:
		return local.Format("January 2, 2006")
	}
}
