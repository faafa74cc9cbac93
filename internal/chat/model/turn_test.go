package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnStateAdvanceInOrder(t *testing.T) {
	s := &TurnState{Stage: StageReceived}

	for _, next := range []Stage{
		StageContextLoaded,
		StageIntentResolved,
		StageDispatched,
		StageContextUpdated,
		StageResponded,
	} {
		require.NoError(t, s.Advance(next))
		assert.Equal(t, next, s.Stage)
	}
}

func TestTurnStateAdvanceRejectsSkips(t *testing.T) {
	s := &TurnState{Stage: StageReceived}

	err := s.Advance(StageIntentResolved)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal turn transition")
	assert.Equal(t, StageReceived, s.Stage, "failed advance must not move the stage")
}

func TestTurnStateAdvanceRejectsRegression(t *testing.T) {
	s := &TurnState{Stage: StageDispatched}

	assert.Error(t, s.Advance(StageContextLoaded))
	assert.Error(t, s.Advance(StageDispatched))
	assert.Equal(t, StageDispatched, s.Stage)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "received", StageReceived.String())
	assert.Equal(t, "responded", StageResponded.String())
	assert.Equal(t, "stage(99)", Stage(99).String())
}
