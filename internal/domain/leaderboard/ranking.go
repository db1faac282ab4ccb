package leaderboard

import (
	"sort"

	"github.com/JohnHuang626/school-score-app/internal/domain/scoring"
)

// Entry is one row of a ranked leaderboard.
type Entry struct {
	ClassID scoring.ClassID `json:"classId"`
	Total   int             `json:"total"`
}

// Rank orders the classes of one grade by descending weekly total.
//
// Classes are selected by grade prefix, the same rule the roster uses to
// generate IDs, so stale-roster classes carried in the totals map rank too.
// Ties break by ascending class ID. That rule is deliberate: the relative
// order of equal totals must be deterministic across processes, not an
// accident of map iteration.
//
// The full ordering is always returned. Podium and Contenders are
// presentation slices over it, never a truncation of the computation.
func Rank(totals Totals, grade scoring.Grade) []Entry {
	entries := make([]Entry, 0, len(totals))
	for classID, total := range totals {
		if classID.BelongsToGrade(grade) {
			entries = append(entries, Entry{ClassID: classID, Total: total})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Total != entries[j].Total {
			return entries[i].Total > entries[j].Total
		}
		return entries[i].ClassID < entries[j].ClassID
	})

	return entries
}

// RankAll ranks every given grade over the same totals map.
func RankAll(totals Totals, grades []scoring.Grade) map[scoring.Grade][]Entry {
	result := make(map[scoring.Grade][]Entry, len(grades))
	for _, grade := range grades {
		result[grade] = Rank(totals, grade)
	}
	return result
}

// Podium returns the first and second place entries, the two rows the
// leaderboard renders distinctly.
func Podium(entries []Entry) []Entry {
	if len(entries) > 2 {
		return entries[:2]
	}
	return entries
}

// Contenders returns positions 3 through 5, the secondary leaderboard list.
// Entries beyond position 5 stay in the ranking data; they are just not
// surfaced by the default view.
func Contenders(entries []Entry) []Entry {
	if len(entries) <= 2 {
		return nil
	}
	if len(entries) > 5 {
		return entries[2:5]
	}
	return entries[2:]
}
