package incentive

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

// Registry maps beneficiaries to their incentive records.
//
// Enroll never resets a running window and Extend only moves windows that are
// already running. Neither brings a terminal record back.
type Registry struct {
	mu      sync.RWMutex
	journal *state.Journal
	clock   clockwork.Clock
	config  *GlobalConfig
	events  *EventLog
	records map[common.Address]Record
}

// NewRegistry returns an empty registry reading durations from config.
func NewRegistry(config *GlobalConfig, clock clockwork.Clock, journal *state.Journal, events *EventLog) *Registry {
	return &Registry{
		journal: journal,
		clock:   clock,
		config:  config,
		events:  events,
		records: make(map[common.Address]Record),
	}
}

// Enroll opens a window of IncentiveDuration seconds for every unenrolled
// address. It returns how many records changed.
func (r *Registry) Enroll(addrs []common.Address) int {
	now := r.now()
	end := now + r.config.IncentiveDuration()

	changed := r.apply(addrs, func(rec Record) (Record, bool) {
		if !rec.Unenrolled() {
			return rec, false
		}

		rec.EndTime = end

		return rec, true
	})

	r.events.emit(Event{Kind: EventNewIncentive, Addresses: copyAddrs(addrs), Time: now})

	log.WithFields(logrus.Fields{
		"requested": len(addrs),
		"changed":   changed,
		"end_time":  end,
	}).Info("Enrolled beneficiaries")

	return changed
}

// Extend moves the window of every pending record to now + IncentiveDuration.
// It returns how many records changed.
func (r *Registry) Extend(addrs []common.Address) int {
	now := r.now()
	end := now + r.config.IncentiveDuration()

	changed := r.apply(addrs, func(rec Record) (Record, bool) {
		if !rec.Pending() {
			return rec, false
		}

		rec.EndTime = end

		return rec, true
	})

	r.events.emit(Event{Kind: EventRenewIncentive, Addresses: copyAddrs(addrs), Time: now})

	log.WithFields(logrus.Fields{
		"requested": len(addrs),
		"changed":   changed,
		"end_time":  end,
	}).Info("Extended beneficiaries")

	return changed
}

// Revoke marks every address terminal. EndTime is kept. It returns how many
// records changed.
func (r *Registry) Revoke(addrs []common.Address) int {
	changed := r.apply(addrs, func(rec Record) (Record, bool) {
		if rec.Claimed {
			return rec, false
		}

		rec.Claimed = true

		return rec, true
	})

	r.events.emit(Event{Kind: EventCancelIncentive, Addresses: copyAddrs(addrs), Time: r.now()})

	log.WithFields(logrus.Fields{
		"requested": len(addrs),
		"changed":   changed,
	}).Info("Revoked beneficiaries")

	return changed
}

// StatusOf returns the record of addr, the zero record if it was never touched.
func (r *Registry) StatusOf(addr common.Address) Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.records[addr]
}

// Records returns a copy of every stored record.
func (r *Registry) Records() map[common.Address]Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[common.Address]Record, len(r.records))
	for addr, rec := range r.records {
		out[addr] = rec
	}

	return out
}

// Load replaces the registry contents. It is not journaled.
func (r *Registry) Load(records map[common.Address]Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[common.Address]Record, len(records))
	for addr, rec := range records {
		r.records[addr] = rec
	}
}

// markClaimed makes the record of addr terminal on a successful claim path.
func (r *Registry) markClaimed(addr common.Address) {
	r.apply([]common.Address{addr}, func(rec Record) (Record, bool) {
		rec.Claimed = true

		return rec, true
	})
}

func (r *Registry) apply(addrs []common.Address, fn func(Record) (Record, bool)) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := 0

	for _, addr := range addrs {
		prev, existed := r.records[addr]

		next, ok := fn(prev)
		if !ok || next == prev {
			continue
		}

		r.records[addr] = next
		changed++

		if r.journal == nil {
			continue
		}

		addr := addr
		r.journal.Append(func() {
			r.mu.Lock()
			defer r.mu.Unlock()

			if existed {
				r.records[addr] = prev
			} else {
				delete(r.records, addr)
			}
		})
	}

	return changed
}

func (r *Registry) now() uint64 {
	return uint64(r.clock.Now().Unix())
}

func copyAddrs(addrs []common.Address) []common.Address {
	out := make([]common.Address, len(addrs))
	copy(out, addrs)

	return out
}
