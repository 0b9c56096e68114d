package queue

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/telehealth-api/internal/model"
)

// Action is an operator action that moves a booking through the workflow.
type Action string

const (
	ActionMoveToIntake           Action = "move-to-intake"
	ActionMoveToReadyForProvider Action = "move-to-ready-for-provider"
	ActionStartCall              Action = "start-call"
	ActionCompleteCall           Action = "complete-call"
	ActionDischargePatient       Action = "discharge-patient"
	ActionCancelAppointment      Action = "cancel-appointment"
	ActionRemoveFromQueue        Action = "remove-from-queue"

	// actionForceSet labels privileged writes in logs, metrics and events.
	actionForceSet = "force-set-status"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownAction     = errors.New("unknown queue action")
)

type transition struct {
	from    []model.Status
	to      model.Status
	failure string
	success string
}

// Cancelling an already cancelled booking is allowed and rewrites the same status.
var transitions = map[Action]transition{
	ActionMoveToIntake: {
		from:    []model.Status{model.StatusPending, model.StatusConfirmed, model.StatusIntake},
		to:      model.StatusIntake,
		failure: "Failed to move patient to intake",
		success: "moved to intake",
	},
	ActionMoveToReadyForProvider: {
		from:    []model.Status{model.StatusIntake},
		to:      model.StatusReadyForProvider,
		failure: "Failed to move patient to ready for provider",
		success: "is ready for the provider",
	},
	ActionStartCall: {
		from:    []model.Status{model.StatusReadyForProvider},
		to:      model.StatusProvider,
		failure: "Failed to start call",
		success: "is now with the provider",
	},
	ActionCompleteCall: {
		from:    []model.Status{model.StatusProvider},
		to:      model.StatusReadyForDischarge,
		failure: "Failed to complete call",
		success: "is ready for discharge",
	},
	ActionDischargePatient: {
		from:    []model.Status{model.StatusReadyForDischarge},
		to:      model.StatusDischarged,
		failure: "Failed to discharge patient",
		success: "was discharged",
	},
	ActionCancelAppointment: {
		from: []model.Status{
			model.StatusPending, model.StatusConfirmed, model.StatusIntake, model.StatusReadyForProvider,
			model.StatusProvider, model.StatusReadyForDischarge, model.StatusCancelled,
		},
		to:      model.StatusCancelled,
		failure: "Failed to cancel appointment",
		success: "appointment was cancelled",
	},
	ActionRemoveFromQueue: {
		from:    []model.Status{model.StatusConfirmed, model.StatusIntake, model.StatusReadyForProvider, model.StatusProvider},
		to:      model.StatusConfirmed,
		failure: "Failed to remove patient from queue",
		success: "was removed from the queue",
	},
}

var actionOrder = []Action{
	ActionMoveToIntake,
	ActionMoveToReadyForProvider,
	ActionStartCall,
	ActionCompleteCall,
	ActionDischargePatient,
	ActionCancelAppointment,
	ActionRemoveFromQueue,
}

// Actions lists every workflow action.
func Actions() []Action {
	out := make([]Action, len(actionOrder))
	copy(out, actionOrder)
	return out
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := transitions[a]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAction, s)
	}
	return a, nil
}

func (a Action) String() string {
	return string(a)
}

// Target is the status the action writes. ok is false for unknown actions.
func (a Action) Target() (model.Status, bool) {
	t, ok := transitions[a]
	return t.to, ok
}

// CanTransition reports whether action a may be applied to a booking in status from.
func CanTransition(a Action, from model.Status) bool {
	t, ok := transitions[a]
	if !ok {
		return false
	}
	for _, s := range t.from {
		if s == from {
			return true
		}
	}
	return false
}

// AvailableActions lists the actions permitted from status, in workflow order.
func AvailableActions(status model.Status) []Action {
	var out []Action
	for _, a := range actionOrder {
		if CanTransition(a, status) {
			out = append(out, a)
		}
	}
	return out
}
