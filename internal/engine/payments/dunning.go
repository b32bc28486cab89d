package payments

import (
	"time"

	"credit-workers/internal/models"
)

// DunningDecision is the outcome of one advance over a dunning sequence.
// NewState is the state the caller must persist; for wait and
// sequence_complete it equals the input state.
type DunningDecision struct {
	Action             models.DunningAction
	Step               *models.DunningStep
	NewState           models.DunningSequenceState
	NextCheckAt        *time.Time
	EscalationRequired bool
	Message            string
}

// NewSequenceState starts a fresh sequence at step zero.
func NewSequenceState(failedPaymentID string, now time.Time) models.DunningSequenceState {
	return models.DunningSequenceState{
		FailedPaymentID: failedPaymentID,
		CurrentStep:     0,
		Status:          "active",
		StartedAt:       now,
	}
}

// AdvanceDunning looks up the step after the current one and decides
// whether to send it, wait, or finish the sequence. The current step
// number never decreases.
func AdvanceDunning(state models.DunningSequenceState, steps []models.DunningStep, amountCents int64, now time.Time) DunningDecision {
	next := findStep(steps, state.CurrentStep+1)
	if next == nil {
		return DunningDecision{
			Action:             models.DunningSequenceComplete,
			NewState:           state,
			EscalationRequired: true,
			Message:            "Dunning email sequence completed",
		}
	}

	if !conditionsMet(*next, state, amountCents, now) {
		nextCheck := now.Add(time.Duration(delayHoursOrDefault(*next)) * time.Hour)
		return DunningDecision{
			Action:      models.DunningWait,
			Step:        next,
			NewState:    state,
			NextCheckAt: &nextCheck,
			Message:     "Conditions not met for next step",
		}
	}

	newState := state
	newState.CurrentStep = next.StepNumber
	stepTime := now
	newState.LastStepAt = &stepTime

	return DunningDecision{
		Action:   models.DunningSendStep,
		Step:     next,
		NewState: newState,
	}
}

func findStep(steps []models.DunningStep, stepNumber int) *models.DunningStep {
	for i := range steps {
		if steps[i].StepNumber == stepNumber && steps[i].Active {
			return &steps[i]
		}
	}
	return nil
}

func conditionsMet(step models.DunningStep, state models.DunningSequenceState, amountCents int64, now time.Time) bool {
	if step.DelayHours > 0 {
		since := state.StartedAt
		if state.LastStepAt != nil {
			since = *state.LastStepAt
		}
		if now.Sub(since) < time.Duration(step.DelayHours)*time.Hour {
			return false
		}
	}

	if step.MinAmount != nil && amountCents < int64(*step.MinAmount*100) {
		return false
	}

	return true
}

func delayHoursOrDefault(step models.DunningStep) int {
	if step.DelayHours > 0 {
		return step.DelayHours
	}
	return 24
}
