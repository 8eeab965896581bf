package service

import "pooltap.app/earnhub/internal/entity"

type event string

const (
	eventRestart event = "restart"
	eventReturn  event = "return"
	eventConfirm event = "confirm"
	eventSubmit  event = "submit"
	eventApprove event = "approve"
	eventReject  event = "reject"
	eventClaim   event = "claim"
)

type edge struct {
	from  entity.CompletionStatus
	event event
}

// Creating a record (the initial start) is not an edge: "available" has no row.
var transitions = map[edge]entity.CompletionStatus{
	{entity.StatusRejected, eventRestart}:   entity.StatusStarted,
	{entity.StatusStarted, eventReturn}:     entity.StatusVerify,
	{entity.StatusVerify, eventConfirm}:     entity.StatusApproved,
	{entity.StatusVerify, eventSubmit}:      entity.StatusValidating,
	{entity.StatusValidating, eventApprove}: entity.StatusApproved,
	{entity.StatusValidating, eventReject}:  entity.StatusRejected,
	{entity.StatusApproved, eventClaim}:     entity.StatusClaimed,
}

func next(from entity.CompletionStatus, ev event) (entity.CompletionStatus, bool) {
	to, ok := transitions[edge{from, ev}]
	return to, ok
}
