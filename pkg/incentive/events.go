package incentive

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

type EventKind string

const (
	EventNewIncentive         EventKind = "NewIncentive"
	EventRenewIncentive       EventKind = "RenewIncentive"
	EventCancelIncentive      EventKind = "CancelIncentive"
	EventClaimedIncentive     EventKind = "ClaimedIncentive"
	EventSetValidatorNum      EventKind = "SetValidatorNum"
	EventSetIncentiveDuration EventKind = "SetIncentiveDuration"
	EventSetDistributor       EventKind = "SetDistributor"
	EventOwnershipTransferred EventKind = "OwnershipTransferred"
)

// Event is a notification emitted by a committed call. Batch events carry the
// addresses passed to the call; config events carry the new value.
type Event struct {
	Seq       uint64
	Kind      EventKind
	Addresses []common.Address
	Value     uint64
	Time      uint64
}

// EventLog is the append-only notification log. Events emitted by a call that
// fails are dropped with the rest of its changes.
type EventLog struct {
	mu      sync.RWMutex
	journal *state.Journal
	events  []Event
}

func NewEventLog(journal *state.Journal) *EventLog {
	return &EventLog{journal: journal}
}

func (l *EventLog) emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Seq = uint64(len(l.events))
	l.events = append(l.events, ev)

	if l.journal == nil {
		return
	}

	n := len(l.events) - 1
	l.journal.Append(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.events = l.events[:n]
	})
}

// Events returns every event in emission order.
func (l *EventLog) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)

	return out
}

// Filter returns the events of the given kind in emission order.
func (l *EventLog) Filter(kind EventKind) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []Event

	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}

	return out
}

// Load replaces the log contents. It is not journaled.
func (l *EventLog) Load(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = make([]Event, len(events))
	copy(l.events, events)
}

// ClaimedBeneficiaries returns the beneficiaries of every ClaimedIncentive event
// in claim order.
func (l *EventLog) ClaimedBeneficiaries() []common.Address {
	events := l.Filter(EventClaimedIncentive)

	out := make([]common.Address, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Addresses...)
	}

	return out
}
