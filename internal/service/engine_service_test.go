package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
)

func TestEngineServiceEvaluate(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewEngineService(nil, metrics, nil)

	resp, err := svc.Evaluate(dto.EvaluateRequest{
		Subjects:   fixtureSubjects(),
		SubjectIDs: []string{"calc", "phys"},
		GroupSelection: models.GroupSelection{
			"calc": pick(1, 1, 0),
			"phys": pick(2, 0, 1),
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Entries, 5)
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, models.WeekdayFriday, resp.Conflicts[0].Day)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.TimetablesComputed)
	assert.Equal(t, uint64(1), snapshot.ConflictsDetected)
}

func TestEngineServiceProposal(t *testing.T) {
	svc := NewEngineService(nil, nil, nil)

	selection, err := svc.Proposal(dto.ProposalRequest{Subjects: fixtureSubjects(), SubjectIDs: []string{"calc", "prog"}})
	require.NoError(t, err)
	assert.Equal(t, models.GroupSelection{"calc": pick(1, 1, 3)}, selection)
}

func TestEngineServiceWouldConflict(t *testing.T) {
	svc := NewEngineService(nil, nil, nil)
	base := dto.WouldConflictRequest{
		Subjects:       fixtureSubjects(),
		SubjectIDs:     []string{"calc", "phys"},
		GroupSelection: models.GroupSelection{"calc": pick(1, 0, 0), "phys": pick(2, 0, 0)},
		SubjectID:      "phys",
		Type:           models.GroupTypeLecture,
		Number:         1,
	}

	resp, err := svc.WouldConflict(base)
	require.NoError(t, err)
	assert.True(t, resp.WouldConflict)

	base.Number = 2
	resp, err = svc.WouldConflict(base)
	require.NoError(t, err)
	assert.False(t, resp.WouldConflict)

	base.Type = "GX"
	_, err = svc.WouldConflict(base)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	base.Type = models.GroupTypeLecture
	base.Number = 0
	_, err = svc.WouldConflict(base)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	base.Number = 1
	base.SubjectID = ""
	_, err = svc.WouldConflict(base)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestEngineServiceSlots(t *testing.T) {
	svc := NewEngineService(nil, nil, nil)

	slots, err := svc.Slots(models.TimeConfig{FirstStart: "21:00", DurationMin: 60, BreakMin: 0})
	require.NoError(t, err)
	assert.Equal(t, []models.TimeSlot{{Start: "21:00", End: "22:00"}}, slots)

	_, err = svc.Slots(models.TimeConfig{FirstStart: "25:00", DurationMin: 60})
	assert.Equal(t, appErrors.ErrInvalidConfig.Code, errorCode(err))
}
