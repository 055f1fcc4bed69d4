package model

import "bikeshop-backend/internal/shared"

type transitionKey struct {
	typ  shared.RequestType
	from Status
}

// transitions lists the allowed moves per request type and source state.
// Approval out of pending depends on the payment method and is resolved by
// approvalTarget instead of being listed here.
var transitions = map[transitionKey][]Status{
	{shared.RequestTypeRepair, StatusPending}:        {StatusRejected, StatusExpired},
	{shared.RequestTypeRepair, StatusWaitingPayment}: {StatusActive, StatusExpired},
	{shared.RequestTypeRepair, StatusActive}:         {StatusCompleted},

	{shared.RequestTypeRental, StatusPending}:           {StatusRejected, StatusExpired},
	{shared.RequestTypeRental, StatusWaitingPayment}:    {StatusArrangingDelivery, StatusExpired},
	{shared.RequestTypeRental, StatusArrangingDelivery}: {StatusActiveRental},
	{shared.RequestTypeRental, StatusActiveRental}:      {StatusCompleted},
}

// ActiveStatus is where a paid or offline-approved request goes.
func ActiveStatus(typ shared.RequestType) Status {
	if typ == shared.RequestTypeRental {
		return StatusArrangingDelivery
	}
	return StatusActive
}

// approvalTarget is the state an admin approval of a pending request leads to.
func approvalTarget(typ shared.RequestType, method PaymentMethod) Status {
	if method == PaymentMethodOnline {
		return StatusWaitingPayment
	}
	return ActiveStatus(typ)
}

// AllowedTargets returns every state reachable in one step.
func AllowedTargets(typ shared.RequestType, method PaymentMethod, from Status) []Status {
	targets := append([]Status(nil), transitions[transitionKey{typ, from}]...)
	if from == StatusPending {
		targets = append([]Status{approvalTarget(typ, method)}, targets...)
	}
	return targets
}

// CanTransition reports whether from -> to is in the table.
func CanTransition(typ shared.RequestType, method PaymentMethod, from, to Status) bool {
	for _, s := range AllowedTargets(typ, method, from) {
		if s == to {
			return true
		}
	}
	return false
}
