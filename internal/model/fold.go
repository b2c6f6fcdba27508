package model

import "fmt"

// TransitionError describes the first violation found while replaying an
// event history. The message is what gets recorded on the failed projection.
type TransitionError struct {
	From    Status
	To      Status
	Message string
}

func (e *TransitionError) Error() string { return e.Message }

func inconsistentTransition(from, to Status) *TransitionError {
	return &TransitionError{
		From:    from,
		To:      to,
		Message: fmt.Sprintf("the transition %s -> %s is inconsistent", from, to),
	}
}

// FoldResult is the outcome of a successful replay.
type FoldResult struct {
	Status            Status
	LastKnownLocation string
}

// Fold replays an ordered event history into its final state, validating every
// transition against the state machine. It starts from PENDING, is free of
// side effects, and is deterministic: the same ordered list always produces
// the same result. The caller decides what to do with a TransitionError.
func Fold(orderID string, events []DeliveryEvent) (FoldResult, *TransitionError) {
	result := FoldResult{Status: StatusPending}

	for _, event := range events {
		if orderID != event.OrderID {
			return result, &TransitionError{
				From: result.Status,
				To:   event.EventType,
				Message: fmt.Sprintf("multiple orderIds for the same trackingNumber: [%s, %s]",
					orderID, event.OrderID),
			}
		}

		if !event.EventType.Valid() {
			return result, &TransitionError{
				From:    result.Status,
				To:      event.EventType,
				Message: fmt.Sprintf("unknown status: %s", event.EventType),
			}
		}

		if !result.Status.CanTransitionTo(event.EventType) {
			return result, inconsistentTransition(result.Status, event.EventType)
		}

		result.Status = event.EventType
		result.LastKnownLocation = event.LastKnownLocation
	}

	return result, nil
}
