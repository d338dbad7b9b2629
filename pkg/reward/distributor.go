package reward

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

var (
	ErrMissingRole    = errors.New("source is not allowed to allocate")
	ErrBudgetExceeded = errors.New("allocation exceeds remaining budget")
)

// Allocation is one granted reward.
type Allocation struct {
	Source      common.Address
	Beneficiary common.Address
	Amount      *uint256.Int
}

// Distributor records reward allocations. Only sources holding the
// distributor role may allocate, and the total allocated never exceeds the
// budget when one is set.
type Distributor struct {
	mu          sync.RWMutex
	address     common.Address
	journal     *state.Journal
	budget      *uint256.Int
	roles       map[common.Address]bool
	allocations []Allocation
	totals      map[common.Address]*uint256.Int
	allocated   *uint256.Int
}

// NewDistributor returns a distributor reachable at address. A nil budget means
// unlimited.
func NewDistributor(address common.Address, budget *uint256.Int, journal *state.Journal) *Distributor {
	d := &Distributor{
		address:   address,
		journal:   journal,
		roles:     make(map[common.Address]bool),
		totals:    make(map[common.Address]*uint256.Int),
		allocated: new(uint256.Int),
	}

	if budget != nil {
		d.budget = new(uint256.Int).Set(budget)
	}

	return d
}

func (d *Distributor) Address() common.Address {
	return d.address
}

// Budget returns the configured budget, nil when unlimited.
func (d *Distributor) Budget() *uint256.Int {
	if d.budget == nil {
		return nil
	}

	return new(uint256.Int).Set(d.budget)
}

func (d *Distributor) GrantRole(source common.Address) {
	d.setRole(source, true)
}

func (d *Distributor) RevokeRole(source common.Address) {
	d.setRole(source, false)
}

func (d *Distributor) HasRole(source common.Address) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.roles[source]
}

// Roles returns every source holding the distributor role in address order.
func (d *Distributor) Roles() []common.Address {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]common.Address, 0, len(d.roles))
	for addr, ok := range d.roles {
		if ok {
			out = append(out, addr)
		}
	}

	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })

	return out
}

// Allocate grants amount to beneficiary on behalf of source.
func (d *Distributor) Allocate(_ context.Context, source, beneficiary common.Address, amount *uint256.Int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.roles[source] {
		return errors.Wrapf(ErrMissingRole, "source %s", source.Hex())
	}

	next, overflow := new(uint256.Int).AddOverflow(d.allocated, amount)
	if overflow || (d.budget != nil && d.budget.Lt(next)) {
		return errors.Wrapf(ErrBudgetExceeded, "allocating %s to %s", amount.ToBig().String(), beneficiary.Hex())
	}

	prevAllocated := d.allocated
	prevTotal, existed := d.totals[beneficiary]

	total := new(uint256.Int).Set(amount)
	if existed {
		total.Add(total, prevTotal)
	}

	d.allocated = next
	d.totals[beneficiary] = total
	d.allocations = append(d.allocations, Allocation{
		Source:      source,
		Beneficiary: beneficiary,
		Amount:      new(uint256.Int).Set(amount),
	})

	if d.journal != nil {
		n := len(d.allocations) - 1
		d.journal.Append(func() {
			d.mu.Lock()
			defer d.mu.Unlock()

			d.allocations = d.allocations[:n]
			d.allocated = prevAllocated

			if existed {
				d.totals[beneficiary] = prevTotal
			} else {
				delete(d.totals, beneficiary)
			}
		})
	}

	log.WithFields(logrus.Fields{
		"source":      source.Hex(),
		"beneficiary": beneficiary.Hex(),
		"amount":      amount.ToBig().String(),
	}).Debug("Allocated reward")

	return nil
}

// Allocated returns the total granted to beneficiary.
func (d *Distributor) Allocated(beneficiary common.Address) *uint256.Int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if total, ok := d.totals[beneficiary]; ok {
		return new(uint256.Int).Set(total)
	}

	return new(uint256.Int)
}

// TotalAllocated returns the sum of every allocation.
func (d *Distributor) TotalAllocated() *uint256.Int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return new(uint256.Int).Set(d.allocated)
}

// Allocations returns every allocation in grant order.
func (d *Distributor) Allocations() []Allocation {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Allocation, len(d.allocations))
	for i, a := range d.allocations {
		out[i] = Allocation{Source: a.Source, Beneficiary: a.Beneficiary, Amount: new(uint256.Int).Set(a.Amount)}
	}

	return out
}

// Load replaces roles and allocations. It is not journaled.
func (d *Distributor) Load(roles []common.Address, allocations []Allocation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.roles = make(map[common.Address]bool, len(roles))
	for _, addr := range roles {
		d.roles[addr] = true
	}

	d.allocations = make([]Allocation, 0, len(allocations))
	d.totals = make(map[common.Address]*uint256.Int)
	d.allocated = new(uint256.Int)

	for _, a := range allocations {
		d.allocations = append(d.allocations, a)
		d.allocated = new(uint256.Int).Add(d.allocated, a.Amount)

		if total, ok := d.totals[a.Beneficiary]; ok {
			d.totals[a.Beneficiary] = new(uint256.Int).Add(total, a.Amount)
		} else {
			d.totals[a.Beneficiary] = new(uint256.Int).Set(a.Amount)
		}
	}
}

func (d *Distributor) setRole(source common.Address, granted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.roles[source]
	if prev == granted {
		return
	}

	if granted {
		d.roles[source] = true
	} else {
		delete(d.roles, source)
	}

	if d.journal == nil {
		return
	}

	d.journal.Append(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		if prev {
			d.roles[source] = true
		} else {
			delete(d.roles, source)
		}
	})
}
