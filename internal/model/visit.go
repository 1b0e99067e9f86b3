package model

import (
	"time"

	"github.com/google/uuid"
)

type VisitStatus string

const (
	VisitStatusWaiting VisitStatus = "WAITING"
	VisitStatusStart   VisitStatus = "START"
	VisitStatusInRoom  VisitStatus = "IN_ROOM"
	VisitStatusDone    VisitStatus = "DONE"
)

// VisitAction names a status-changing operation on a visit.
type VisitAction string

const (
	VisitActionStart    VisitAction = "start"
	VisitActionInRoom   VisitAction = "in_room"
	VisitActionSendBack VisitAction = "send_back_to_waiting"
	VisitActionDone     VisitAction = "done"
)

// transitions maps each action to the states it may be applied from and the
// state it produces. DONE has no outgoing transitions.
var transitions = map[VisitAction]struct {
	from []VisitStatus
	to   VisitStatus
}{
	VisitActionStart:    {from: []VisitStatus{VisitStatusWaiting}, to: VisitStatusStart},
	VisitActionInRoom:   {from: []VisitStatus{VisitStatusStart}, to: VisitStatusInRoom},
	VisitActionSendBack: {from: []VisitStatus{VisitStatusStart, VisitStatusInRoom}, to: VisitStatusWaiting},
	VisitActionDone:     {from: []VisitStatus{VisitStatusInRoom}, to: VisitStatusDone},
}

// ValidAction reports whether the action names a known transition.
func ValidAction(action VisitAction) bool {
	_, ok := transitions[action]
	return ok
}

// NextStatus resolves the target state for applying action to current.
// The second return value is false when the transition is not allowed.
func NextStatus(current VisitStatus, action VisitAction) (VisitStatus, bool) {
	t, ok := transitions[action]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if from == current {
			return t.to, true
		}
	}
	return "", false
}

// AllowedStates returns the states an action may be applied from, for error
// reporting.
func AllowedStates(action VisitAction) []string {
	t, ok := transitions[action]
	if !ok {
		return nil
	}
	states := make([]string, len(t.from))
	for i, s := range t.from {
		states[i] = string(s)
	}
	return states
}

// Visit records one patient's trip through a queue on a given day. The token
// number is unique per (queue, visit date), not globally.
type Visit struct {
	Base
	TokenNumber int         `db:"token_number" json:"token_number"`
	VisitDate   time.Time   `db:"visit_date" json:"visit_date"`
	Status      VisitStatus `db:"status" json:"status"`
	PatientID   string      `db:"patient_id" json:"patient_id"`
	QueueID     uuid.UUID   `db:"queue_id" json:"queue_id"`
	PatientName string      `db:"patient_name" json:"patient_name,omitempty"`
	QueueName   string      `db:"queue_name" json:"queue_name,omitempty"`
}

type CreateVisitRequest struct {
	PatientID string `json:"patient" binding:"required"`
	QueueID   string `json:"queue" binding:"required"`
}

// VisitFilters narrows visit listings.
type VisitFilters struct {
	Statuses []VisitStatus
	QueueID  *uuid.UUID
	// Date restricts results to a single visit date; the service sets it to
	// today whenever WAITING is among the requested statuses.
	Date *time.Time
}
