// Package scoring contains the domain model for class behavior score events.
// A score event is an immutable, signed scoring record for one class in one
// evaluation period of one school day. The event log is append-only; totals
// and rankings are always recomputed from it, never stored.
// This is a pure domain layer with zero external dependencies.
package scoring

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/JohnHuang626/school-score-app/pkg/weekcal"
)

// Domain errors for the scoring package.
var (
	ErrInvalidClassID    = errors.New("scoring: invalid class ID")
	ErrInvalidPeriod     = errors.New("scoring: invalid evaluation period")
	ErrInvalidEventKey   = errors.New("scoring: invalid event key")
	ErrEmptyBatch        = errors.New("scoring: empty event batch")
	ErrStoreUnavailable  = errors.New("scoring: event store unavailable")
	ErrPermissionDenied  = errors.New("scoring: event store permission denied")
	ErrIdentityNotReady  = errors.New("scoring: rater identity not established")
)

// EventKey is the opaque unique identifier of a score event.
// Keys are assigned by the store at append time; a freshly constructed event
// has an empty key.
type EventKey string

// IsValid checks if the event key is set.
func (k EventKey) IsValid() bool {
	return k != ""
}

// String returns the string representation of the event key.
func (k EventKey) String() string {
	return string(k)
}

// ClassID identifies a class as "<grade><two-digit-sequence>", e.g. "101"
// for grade 1 class 01, "205" for grade 2 class 05.
type ClassID string

// IsValid checks that the class ID has a numeric grade prefix followed by a
// two-digit sequence number.
func (c ClassID) IsValid() bool {
	_, err := c.Grade()
	return err == nil
}

// Grade extracts the grade from the class ID prefix. Everything before the
// trailing two-digit sequence number is the grade.
func (c ClassID) Grade() (Grade, error) {
	s := string(c)
	if len(s) < 3 {
		return 0, ErrInvalidClassID
	}
	prefix, seq := s[:len(s)-2], s[len(s)-2:]
	g, err := strconv.Atoi(prefix)
	if err != nil || g <= 0 {
		return 0, ErrInvalidClassID
	}
	if _, err := strconv.Atoi(seq); err != nil {
		return 0, ErrInvalidClassID
	}
	return Grade(g), nil
}

// BelongsToGrade reports whether the class ID carries the given grade prefix.
// This is the same prefix rule the roster uses to generate class IDs.
func (c ClassID) BelongsToGrade(g Grade) bool {
	grade, err := c.Grade()
	return err == nil && grade == g
}

// String returns the string representation of the class ID.
func (c ClassID) String() string {
	return string(c)
}

// Grade is a school grade number (e.g. 1, 2, 3).
type Grade int

// IsValid checks that the grade is positive.
func (g Grade) IsValid() bool {
	return g > 0
}

// String returns the string representation of the grade.
func (g Grade) String() string {
	return strconv.Itoa(int(g))
}

// Score is a signed behavior score. The observed input range is -3..+3 but
// the domain never assumes bounds: scores are arbitrary signed integers and
// totals accumulate without clamping.
type Score int

// String renders the score with an explicit sign, matching how weekly totals
// are displayed ("+3", "-1", "0").
func (s Score) String() string {
	if s > 0 {
		return fmt.Sprintf("+%d", int(s))
	}
	return strconv.Itoa(int(s))
}

// Period is an evaluation slot of the school day (morning study, assembly,
// lunch rest, ...). The concrete slot list is deployment configuration, not
// domain logic, so the domain only requires a non-empty name.
type Period string

// IsValid checks that the period name is set.
func (p Period) IsValid() bool {
	return strings.TrimSpace(string(p)) != ""
}

// String returns the string representation of the period.
func (p Period) String() string {
	return string(p)
}

// ScoreEvent is one immutable behavioral scoring record.
//
// Week is stored redundantly alongside Date so weekly queries compare the
// identifier that was valid at write time instead of re-deriving it on every
// read. NewScoreEvent is the only constructor, which keeps the invariant
// Week == weekcal.WeekOf(Date) from drifting.
type ScoreEvent struct {
	// Key is assigned by the store at append time; empty until then.
	Key EventKey

	// Date is the civil date the behavior occurred. Time-of-day carries no
	// meaning.
	Date time.Time

	// Week is the ISO week identifier derived from Date.
	Week weekcal.WeekID

	// Period is the evaluation slot the score applies to.
	Period Period

	// Grade is derived from the ClassID prefix.
	Grade Grade

	// ClassID identifies the scored class.
	ClassID ClassID

	// Score is the signed score value.
	Score Score

	// Note is optional free text shared by the whole submission batch.
	Note string

	// CreatedAt is the store-assigned creation timestamp. Used only for
	// display ordering, never for aggregation.
	CreatedAt time.Time

	// RaterUID is the opaque identity of whoever submitted the event.
	RaterUID string
}

// NewScoreEvent constructs an unsaved score event, deriving Week from the
// date and Grade from the class ID. Key and CreatedAt stay zero until the
// store assigns them.
func NewScoreEvent(date time.Time, period Period, classID ClassID, score Score, note, raterUID string) (*ScoreEvent, error) {
	if !period.IsValid() {
		return nil, ErrInvalidPeriod
	}

	grade, err := classID.Grade()
	if err != nil {
		return nil, err
	}

	week, err := weekcal.WeekOf(date)
	if err != nil {
		return nil, err
	}

	return &ScoreEvent{
		Date:     date,
		Week:     week,
		Period:   period,
		Grade:    grade,
		ClassID:  classID,
		Score:    score,
		Note:     strings.TrimSpace(note),
		RaterUID: raterUID,
	}, nil
}

// IsPersisted reports whether the event has been written to the store.
func (e *ScoreEvent) IsPersisted() bool {
	return e.Key.IsValid()
}
