package services

import (
	"math"
	"time"

	"case_track_go/models"
)

// Verdict is the tri-state SLA compliance outcome for a case file.
type Verdict string

const (
	VerdictMet     Verdict = "met"
	VerdictMissed  Verdict = "missed"
	VerdictPending Verdict = "pending"
)

// Allowed processing windows in calendar days
const (
	AllowedDaysUrgent = 2
	AllowedDaysCommon = 5
)

// DeadlineResult is the outcome of ClassifyDeadline. Overdue is the boolean
// projection of the verdict for callers that only need a yes/no.
type DeadlineResult struct {
	Verdict            Verdict    `json:"verdict"`
	Overdue            bool       `json:"overdue"`
	AllowedDays        int        `json:"allowed_days"`
	EffectiveCloseDate *time.Time `json:"effective_close_date,omitempty"`
}

// AllowedDays returns the processing window for an urgency level.
func AllowedDays(urgency string) int {
	if urgency == models.UrgencyUrgent {
		return AllowedDaysUrgent
	}
	return AllowedDaysCommon
}

// ClassifyDeadline is the single source of truth for SLA compliance. Both the
// live report rows and the aggregate summary are computed from it, so the two
// can never drift apart.
//
// The effective close date is the case file's own ClosedAt when closed, else
// the latest outbound movement's date (the hand-off that effectively closed
// processing), else none. A closed file with no determinable close date is
// classified pending rather than treated as an error.
func ClassifyDeadline(caseFile *models.CaseFile, latestOutbound *models.Movement, today time.Time) DeadlineResult {
	result := DeadlineResult{
		Verdict:     VerdictPending,
		AllowedDays: AllowedDays(caseFile.Urgency),
	}

	var effectiveClose *time.Time
	if caseFile.ClosedAt != nil {
		effectiveClose = caseFile.ClosedAt
	} else if latestOutbound != nil {
		d := latestOutbound.MovementDate
		effectiveClose = &d
	}
	result.EffectiveCloseDate = effectiveClose

	switch {
	case caseFile.IsClosed() && effectiveClose != nil:
		if CalendarDaysBetween(caseFile.IntakeDate, *effectiveClose) <= result.AllowedDays {
			result.Verdict = VerdictMet
		} else {
			result.Verdict = VerdictMissed
		}
	case caseFile.IsOpen():
		if CalendarDaysBetween(caseFile.IntakeDate, today) > result.AllowedDays {
			result.Verdict = VerdictMissed
		}
		// otherwise still within the window: pending
	}

	result.Overdue = result.Verdict == VerdictMissed
	return result
}

// CalendarDaysBetween returns the ceiling of the elapsed time between two
// instants in days. Plain calendar days: no business calendar, no time zones.
func CalendarDaysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}
