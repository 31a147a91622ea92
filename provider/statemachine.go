package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// reachable is the authoritative transition table. Refunded and Cancelled are
// terminal. Error is terminal too unless the gateway profile allows a later
// successful status poll to recover it.
var reachable = map[PaymentState][]PaymentState{
	StateInitialized: {StateAuthorized, StateCaptured, StateCancelled, StateError},
	StateAuthorized:  {StateCaptured, StateCancelled, StateRefunded, StateError},
	StateCaptured:    {StateRefunded, StateError},
	StateRefunded:    {},
	StateCancelled:   {},
	StateError:       {},
}

// errorRecovery lists the states a recoverable Error may advance to.
var errorRecovery = []PaymentState{StateAuthorized, StateCaptured, StateRefunded, StateCancelled}

// CanTransition reports whether target is reachable from current.
func CanTransition(current, target PaymentState, recoverableError bool) bool {
	candidates := reachable[current]
	if current == StateError && recoverableError {
		candidates = errorRecovery
	}
	for _, state := range candidates {
		if state == target {
			return true
		}
	}
	return false
}

// ApplyOutcome classifies the result of a transition request.
type ApplyOutcome string

const (
	OutcomeApplied  ApplyOutcome = "applied"
	OutcomeIgnored  ApplyOutcome = "ignored"
	OutcomeRejected ApplyOutcome = "rejected"
)

// ApplyResult is the state machine's answer to a transition request.
type ApplyResult struct {
	Outcome ApplyOutcome `json:"outcome"`
	Reason  string       `json:"reason,omitempty"`
}

// lockStripes bounds the order lock table. Ids hash onto a fixed set of
// mutexes, so lock memory stays constant however many orders pass through.
const lockStripes = 64

// StateMachine drives payment state transitions idempotently and persists
// them through the order store. Replaying an identical callback yields
// Ignored; an unreachable target yields Rejected and leaves the order
// untouched.
type StateMachine struct {
	store OrderStore
	locks [lockStripes]sync.Mutex
}

// NewStateMachine creates a state machine persisting through store.
func NewStateMachine(store OrderStore) *StateMachine {
	return &StateMachine{store: store}
}

func (m *StateMachine) lockFor(orderID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(orderID))
	return &m.locks[h.Sum32()%lockStripes]
}

// LockOrder acquires the single-writer lock for an order id and returns the
// unlock function. Callers hold it around the whole verify, reconcile and
// apply sequence so two concurrent callbacks cannot race past the
// reachability check. Distinct ids may share a stripe and serialize with
// each other, which is harmless.
func (m *StateMachine) LockOrder(orderID string) func() {
	lock := m.lockFor(orderID)
	lock.Lock()
	return lock.Unlock
}

// Apply moves the order to the requested target state. The caller must hold
// the order lock from LockOrder. Target must be a concrete state; mapping a
// gateway code to NoTransition is the caller's concern.
func (m *StateMachine) Apply(ctx context.Context, order *Order, req TransitionRequest, profile *Profile) (*ApplyResult, error) {
	if req.Target == NoTransition {
		return nil, fmt.Errorf("transition target is empty")
	}

	if order.State == req.Target {
		return &ApplyResult{
			Outcome: OutcomeIgnored,
			Reason:  fmt.Sprintf("order already in state %q", order.State),
		}, nil
	}

	if !CanTransition(order.State, req.Target, profile != nil && profile.RecoverableError) {
		return &ApplyResult{
			Outcome: OutcomeRejected,
			Reason:  fmt.Sprintf("transition %q -> %q is not reachable", order.State, req.Target),
		}, nil
	}

	tr := Transition{
		From:          order.State,
		To:            req.Target,
		StatusCode:    req.StatusCode,
		TransactionID: req.TransactionID,
		Flagged:       req.Flagged,
		Note:          req.Note,
		At:            time.Now().UTC(),
	}

	prevTransactionID := order.TransactionID

	order.State = req.Target
	if req.TransactionID != "" {
		order.TransactionID = req.TransactionID
	}
	order.History = append(order.History, tr)

	if err := m.store.Save(ctx, order, &tr); err != nil {
		// Roll the in-memory view back so a retry sees the stored state.
		order.State = tr.From
		order.TransactionID = prevTransactionID
		order.History = order.History[:len(order.History)-1]
		return nil, fmt.Errorf("persist transition: %w", err)
	}

	return &ApplyResult{Outcome: OutcomeApplied}, nil
}
