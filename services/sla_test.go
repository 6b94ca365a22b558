package services

import (
	"testing"
	"time"

	"case_track_go/models"

	"github.com/stretchr/testify/assert"
)

func day(d int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func closedCaseFile(urgency string, intake, closed time.Time) *models.CaseFile {
	return &models.CaseFile{
		Urgency:    urgency,
		IntakeDate: intake,
		State:      models.CaseFileStateClosed,
		ClosedAt:   &closed,
	}
}

func TestAllowedDays(t *testing.T) {
	assert.Equal(t, 2, AllowedDays(models.UrgencyUrgent))
	assert.Equal(t, 5, AllowedDays(models.UrgencyCommon))
	assert.Equal(t, 5, AllowedDays(""))
}

func TestClassifyDeadlineClosedUrgent(t *testing.T) {
	// Closed exactly on the boundary: met
	result := ClassifyDeadline(closedCaseFile(models.UrgencyUrgent, day(0), day(2)), nil, day(10))
	assert.Equal(t, VerdictMet, result.Verdict)
	assert.False(t, result.Overdue)
	assert.Equal(t, 2, result.AllowedDays)

	// One day past the window: missed
	result = ClassifyDeadline(closedCaseFile(models.UrgencyUrgent, day(0), day(3)), nil, day(10))
	assert.Equal(t, VerdictMissed, result.Verdict)
	assert.True(t, result.Overdue)
}

func TestClassifyDeadlineClosedCommon(t *testing.T) {
	result := ClassifyDeadline(closedCaseFile(models.UrgencyCommon, day(0), day(5)), nil, day(10))
	assert.Equal(t, VerdictMet, result.Verdict)

	result = ClassifyDeadline(closedCaseFile(models.UrgencyCommon, day(0), day(6)), nil, day(10))
	assert.Equal(t, VerdictMissed, result.Verdict)
}

func TestClassifyDeadlineOpen(t *testing.T) {
	open := &models.CaseFile{
		Urgency:    models.UrgencyCommon,
		IntakeDate: day(0),
		State:      models.CaseFileStateOpen,
	}

	// Still within the window: pending
	result := ClassifyDeadline(open, nil, day(5))
	assert.Equal(t, VerdictPending, result.Verdict)
	assert.False(t, result.Overdue)

	// Past the window while still open: missed
	result = ClassifyDeadline(open, nil, day(6))
	assert.Equal(t, VerdictMissed, result.Verdict)
	assert.True(t, result.Overdue)
}

func TestClassifyDeadlineLatestOutboundAsCloseDate(t *testing.T) {
	// Closed state but no ClosedAt recorded: the latest outbound hand-off
	// determines the effective close date
	caseFile := &models.CaseFile{
		Urgency:    models.UrgencyUrgent,
		IntakeDate: day(0),
		State:      models.CaseFileStateClosed,
	}
	outbound := &models.Movement{
		Kind:         models.MovementKindOutbound,
		MovementDate: day(1),
	}

	result := ClassifyDeadline(caseFile, outbound, day(10))
	assert.Equal(t, VerdictMet, result.Verdict)
	assert.NotNil(t, result.EffectiveCloseDate)
	assert.True(t, result.EffectiveCloseDate.Equal(day(1)))
}

func TestClassifyDeadlineClosedAtWinsOverOutbound(t *testing.T) {
	closed := day(3)
	caseFile := &models.CaseFile{
		Urgency:    models.UrgencyUrgent,
		IntakeDate: day(0),
		State:      models.CaseFileStateClosed,
		ClosedAt:   &closed,
	}
	outbound := &models.Movement{
		Kind:         models.MovementKindOutbound,
		MovementDate: day(1),
	}

	result := ClassifyDeadline(caseFile, outbound, day(10))
	assert.Equal(t, VerdictMissed, result.Verdict)
	assert.True(t, result.EffectiveCloseDate.Equal(closed))
}

func TestClassifyDeadlineClosedWithoutAnyCloseDate(t *testing.T) {
	caseFile := &models.CaseFile{
		Urgency:    models.UrgencyCommon,
		IntakeDate: day(0),
		State:      models.CaseFileStateClosed,
	}

	result := ClassifyDeadline(caseFile, nil, day(30))
	assert.Equal(t, VerdictPending, result.Verdict)
	assert.Nil(t, result.EffectiveCloseDate)
}

func TestCalendarDaysBetween(t *testing.T) {
	assert.Equal(t, 0, CalendarDaysBetween(day(0), day(0)))
	assert.Equal(t, 2, CalendarDaysBetween(day(0), day(2)))

	// Partial days round up
	assert.Equal(t, 3, CalendarDaysBetween(day(0), day(2).Add(6*time.Hour)))
}
