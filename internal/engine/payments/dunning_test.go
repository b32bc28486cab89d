package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-workers/internal/models"
)

func testSteps() []models.DunningStep {
	f := func(v float64) *float64 { return &v }
	return []models.DunningStep{
		{StepNumber: 1, EmailTemplateKey: "dunning_first", Subject: "Payment reminder", DelayHours: 24, Active: true},
		{StepNumber: 2, EmailTemplateKey: "dunning_second", Subject: "Second notice", DelayHours: 72, Active: true},
		{StepNumber: 3, EmailTemplateKey: "dunning_final", Subject: "Final notice", DelayHours: 72, MinAmount: f(50), IsFinal: true, Active: true},
	}
}

func TestAdvanceDunningWaitsUntilDelayElapsed(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-1", start)

	decision := AdvanceDunning(state, testSteps(), 10000, start.Add(1*time.Hour))

	assert.Equal(t, models.DunningWait, decision.Action)
	assert.Equal(t, 0, decision.NewState.CurrentStep)
	require.NotNil(t, decision.NextCheckAt)
	assert.Equal(t, start.Add(25*time.Hour), *decision.NextCheckAt)
	assert.Equal(t, "Conditions not met for next step", decision.Message)
}

func TestAdvanceDunningSendsAfterDelay(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-1", start)
	later := start.Add(25 * time.Hour)

	decision := AdvanceDunning(state, testSteps(), 10000, later)

	assert.Equal(t, models.DunningSendStep, decision.Action)
	require.NotNil(t, decision.Step)
	assert.Equal(t, 1, decision.Step.StepNumber)
	assert.Equal(t, "dunning_first", decision.Step.EmailTemplateKey)
	assert.Equal(t, 1, decision.NewState.CurrentStep)
	require.NotNil(t, decision.NewState.LastStepAt)
	assert.Equal(t, later, *decision.NewState.LastStepAt)
}

func TestAdvanceDunningDelayMeasuredFromLastStep(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-1", start)

	first := AdvanceDunning(state, testSteps(), 10000, start.Add(25*time.Hour))
	require.Equal(t, models.DunningSendStep, first.Action)

	// Step 2 needs 72 hours from the step-1 send, not from sequence start.
	tooSoon := AdvanceDunning(first.NewState, testSteps(), 10000, start.Add(60*time.Hour))
	assert.Equal(t, models.DunningWait, tooSoon.Action)

	ready := AdvanceDunning(first.NewState, testSteps(), 10000, start.Add(25*time.Hour+73*time.Hour))
	assert.Equal(t, models.DunningSendStep, ready.Action)
	assert.Equal(t, 2, ready.NewState.CurrentStep)
}

func TestAdvanceDunningMinAmountGate(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-1", start)
	state.CurrentStep = 2
	lastStep := start.Add(100 * time.Hour)
	state.LastStepAt = &lastStep

	later := lastStep.Add(80 * time.Hour)

	// Step 3 requires at least $50 outstanding.
	small := AdvanceDunning(state, testSteps(), 4000, later)
	assert.Equal(t, models.DunningWait, small.Action)

	large := AdvanceDunning(state, testSteps(), 6000, later)
	assert.Equal(t, models.DunningSendStep, large.Action)
	assert.True(t, large.Step.IsFinal)
}

func TestAdvanceDunningSequenceComplete(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-1", start)
	state.CurrentStep = 3

	decision := AdvanceDunning(state, testSteps(), 10000, start.Add(1000*time.Hour))

	assert.Equal(t, models.DunningSequenceComplete, decision.Action)
	assert.True(t, decision.EscalationRequired)
	assert.Equal(t, "Dunning email sequence completed", decision.Message)
	assert.Equal(t, state, decision.NewState)
}

func TestAdvanceDunningSkipsInactiveSteps(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	steps := testSteps()
	steps[0].Active = false
	state := NewSequenceState("fp-1", start)

	// With step 1 disabled the sequence has nothing to send next.
	decision := AdvanceDunning(state, steps, 10000, start.Add(48*time.Hour))
	assert.Equal(t, models.DunningSequenceComplete, decision.Action)
}

func TestAdvanceDunningStepNeverDecreases(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-1", start)
	current := 0

	clock := start
	for i := 0; i < 10; i++ {
		clock = clock.Add(80 * time.Hour)
		decision := AdvanceDunning(state, testSteps(), 10000, clock)
		assert.GreaterOrEqual(t, decision.NewState.CurrentStep, current)
		state = decision.NewState
		current = state.CurrentStep
		if decision.Action == models.DunningSequenceComplete {
			break
		}
	}
	assert.Equal(t, 3, current)
}

func TestNewSequenceState(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	state := NewSequenceState("fp-9", start)

	assert.Equal(t, "fp-9", state.FailedPaymentID)
	assert.Equal(t, 0, state.CurrentStep)
	assert.Equal(t, "active", state.Status)
	assert.Equal(t, start, state.StartedAt)
	assert.Nil(t, state.LastStepAt)
}
