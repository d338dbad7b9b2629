package ledger

import (
	"bytes"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

// Native identifies the chain's native currency. Any other asset address names a
// fungible token.
var Native = common.Address{}

// ErrInsufficientFunds is returned when a transfer exceeds the sender's balance.
var ErrInsufficientFunds = errors.New("transfer amount exceeds balance")

// Bank tracks balances per asset and account.
type Bank struct {
	mu       sync.RWMutex
	journal  *state.Journal
	balances map[common.Address]map[common.Address]*uint256.Int
}

// Balance is one non-zero balance entry, used for export and persistence.
type Balance struct {
	Asset   common.Address
	Account common.Address
	Amount  *uint256.Int
}

// NewBank returns an empty bank recording undo entries in journal.
func NewBank(journal *state.Journal) *Bank {
	return &Bank{
		journal:  journal,
		balances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

// BalanceOf returns a copy of account's balance of asset.
func (b *Bank) BalanceOf(asset, account common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return new(uint256.Int).Set(b.get(asset, account))
}

// Mint credits amount of asset to account.
func (b *Bank) Mint(asset, account common.Address, amount *uint256.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bal := new(uint256.Int).Add(b.get(asset, account), amount)
	b.set(asset, account, bal)

	log.WithFields(logrus.Fields{
		"asset":   asset.Hex(),
		"account": account.Hex(),
		"amount":  amount.ToBig().String(),
	}).Debug("Minted balance")
}

// Transfer moves amount of asset from one account to another.
func (b *Bank) Transfer(asset, from, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	fromBal := b.get(asset, from)
	if fromBal.Lt(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "%s holds %s of %s, needs %s",
			from.Hex(), fromBal.ToBig().String(), asset.Hex(), amount.ToBig().String())
	}

	b.set(asset, from, new(uint256.Int).Sub(fromBal, amount))
	b.set(asset, to, new(uint256.Int).Add(b.get(asset, to), amount))

	return nil
}

// Balances returns every non-zero balance ordered by asset then account.
func (b *Bank) Balances() []Balance {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Balance, 0)

	for asset, accounts := range b.balances {
		for account, amount := range accounts {
			if amount.IsZero() {
				continue
			}

			out = append(out, Balance{
				Asset:   asset,
				Account: account,
				Amount:  new(uint256.Int).Set(amount),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Asset[:], out[j].Asset[:]); c != 0 {
			return c < 0
		}

		return bytes.Compare(out[i].Account[:], out[j].Account[:]) < 0
	})

	return out
}

// Load replaces the bank contents. It is not journaled.
func (b *Bank) Load(balances []Balance) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances = make(map[common.Address]map[common.Address]*uint256.Int)

	for _, bal := range balances {
		if _, ok := b.balances[bal.Asset]; !ok {
			b.balances[bal.Asset] = make(map[common.Address]*uint256.Int)
		}

		b.balances[bal.Asset][bal.Account] = new(uint256.Int).Set(bal.Amount)
	}
}

func (b *Bank) get(asset, account common.Address) *uint256.Int {
	if bal, ok := b.balances[asset][account]; ok {
		return bal
	}

	return new(uint256.Int)
}

// set must be called with mu held.
func (b *Bank) set(asset, account common.Address, amount *uint256.Int) {
	prev, existed := b.balances[asset][account]

	if _, ok := b.balances[asset]; !ok {
		b.balances[asset] = make(map[common.Address]*uint256.Int)
	}

	b.balances[asset][account] = amount

	if b.journal == nil {
		return
	}

	b.journal.Append(func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if existed {
			b.balances[asset][account] = prev
		} else {
			delete(b.balances[asset], account)
		}
	})
}
