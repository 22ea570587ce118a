package eivu

import "eivu-go/internal/model"

// Event is a lifecycle event applied to a File.
type Event string

const (
	EventReserve  Event = "reserve"
	EventTransfer Event = "transfer"
	EventComplete Event = "complete"
)

type transition struct {
	from model.FileState
	to   model.FileState
}

// Each event has exactly one legal source state.
var transitions = map[Event]transition{
	EventReserve:  {from: model.StateEmpty, to: model.StateReserved},
	EventTransfer: {from: model.StateReserved, to: model.StateTransferred},
	EventComplete: {from: model.StateTransferred, to: model.StateCompleted},
}

// nextState returns the state a file in current moves to on ev.
func nextState(fileID string, current model.FileState, ev Event) (model.FileState, error) {
	t, ok := transitions[ev]
	if !ok || t.from != current {
		return current, &TransitionError{FileID: fileID, Event: ev, From: current}
	}
	return t.to, nil
}
