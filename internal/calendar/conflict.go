package calendar

import (
	"sort"
	"time"

	"event-scheduler/internal/model"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share an instant.
// Windows that only touch at an endpoint do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DetectConflicts picks, out of candidates, the events that would
// double-book any user in involved during [start, end). excludeID (0 for
// none) never conflicts. Results are ordered by start, then id.
func DetectConflicts(candidates []model.Event, involved []int64, start, end time.Time, excludeID int64) []model.Conflict {
	want := make(map[int64]struct{}, len(involved))
	for _, id := range involved {
		want[id] = struct{}{}
	}

	out := []model.Conflict{}
	for i := range candidates {
		e := &candidates[i]
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if !Overlaps(e.StartAt, e.EndAt, start, end) {
			continue
		}

		_, creatorHit := want[e.CreatorID]
		var participants []int64
		for _, p := range e.ParticipantIDs {
			if p == e.CreatorID {
				continue
			}
			if _, ok := want[p]; ok {
				participants = append(participants, p)
			}
		}
		if !creatorHit && len(participants) == 0 {
			continue
		}

		users := append([]int64(nil), participants...)
		if creatorHit {
			users = append(users, e.CreatorID)
		}
		sortIDs(users)
		sortIDs(participants)
		if participants == nil {
			participants = []int64{}
		}

		out = append(out, model.Conflict{
			EventID:                   e.ID,
			Title:                     e.Title,
			StartAt:                   e.StartAt,
			EndAt:                     e.EndAt,
			ConflictingUserIDs:        dedupeSorted(users),
			CreatorConflict:           creatorHit,
			ConflictingParticipantIDs: dedupeSorted(participants),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartAt.Equal(out[j].StartAt) {
			return out[i].StartAt.Before(out[j].StartAt)
		}
		return out[i].EventID < out[j].EventID
	})
	return out
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// dedupeSorted drops adjacent duplicates in place.
func dedupeSorted(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}
	out := ids[:1]
	for _, id := range ids[1:] {
		if id != out[len(out)-1] {
			out = append(out, id)
		}
	}
	return out
}
