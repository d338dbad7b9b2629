package deposit

import (
	"bytes"
	"context"
	"encoding/hex"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/prysm/v5/config/params"
	"github.com/prysmaticlabs/prysm/v5/container/trie"
	ethpb "github.com/prysmaticlabs/prysm/v5/proto/prysm/v1alpha1"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

const (
	PubkeyLength                = 48
	WithdrawalCredentialsLength = 32
	SignatureLength             = 96
	RootLength                  = 32
)

var (
	ErrRootMismatch  = errors.New("reconstructed DepositData does not match supplied deposit_data_root")
	ErrInvalidLength = errors.New("invalid deposit field length")
	ErrInvalidValue  = errors.New("invalid deposit value")
)

var (
	gwei            = uint256.NewInt(1_000_000_000)
	minDepositValue = uint256.NewInt(1_000_000_000_000_000_000)
)

// Record is a deposit accepted by the sink.
type Record struct {
	Index                 uint64
	Pubkey                []byte
	WithdrawalCredentials []byte
	Signature             []byte
	Amount                uint64
	Root                  [32]byte
}

// Sink is an append-only deposit ledger following the deposit contract rules:
// the supplied deposit_data_root must match the hash tree root of the deposit
// data, and accepted roots become leaves of the deposit tree.
type Sink struct {
	mu       sync.RWMutex
	address  common.Address
	journal  *state.Journal
	deposits []*Record
}

// NewSink returns an empty sink reachable at address.
func NewSink(address common.Address, journal *state.Journal) *Sink {
	return &Sink{
		address: address,
		journal: journal,
	}
}

// Address returns the ledger account that receives deposit value.
func (s *Sink) Address() common.Address {
	return s.address
}

// Submit validates and appends one deposit. value is expressed in wei.
func (s *Sink) Submit(_ context.Context, pubkey, withdrawalCredentials, signature []byte, root [32]byte, value *uint256.Int) error {
	if value.Lt(minDepositValue) {
		return errors.Wrapf(ErrInvalidValue, "deposit value %s too low", value.ToBig().String())
	}

	if !new(uint256.Int).Mod(value, gwei).IsZero() {
		return errors.Wrapf(ErrInvalidValue, "deposit value %s not multiple of gwei", value.ToBig().String())
	}

	amount := new(uint256.Int).Div(value, gwei)
	if !amount.IsUint64() {
		return errors.Wrapf(ErrInvalidValue, "deposit value %s too high", value.ToBig().String())
	}

	computed, err := DataRoot(pubkey, withdrawalCredentials, signature, amount.Uint64())
	if err != nil {
		return err
	}

	if !bytes.Equal(computed[:], root[:]) {
		return errors.Wrapf(ErrRootMismatch, "supplied %s, computed %s",
			hex.EncodeToString(root[:]), hex.EncodeToString(computed[:]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &Record{
		Index:                 uint64(len(s.deposits)),
		Pubkey:                append([]byte(nil), pubkey...),
		WithdrawalCredentials: append([]byte(nil), withdrawalCredentials...),
		Signature:             append([]byte(nil), signature...),
		Amount:                amount.Uint64(),
		Root:                  root,
	}

	s.deposits = append(s.deposits, rec)

	if s.journal != nil {
		n := len(s.deposits) - 1
		s.journal.Append(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			s.deposits = s.deposits[:n]
		})
	}

	log.WithFields(logrus.Fields{
		"index":  rec.Index,
		"pubkey": hex.EncodeToString(pubkey),
		"amount": rec.Amount,
	}).Debug("Deposit accepted")

	return nil
}

// Count returns the number of accepted deposits.
func (s *Sink) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.deposits))
}

// Root returns the deposit tree root mixed in with the deposit count, as
// reported by the deposit contract's get_deposit_root.
func (s *Sink) Root() ([32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	depth := params.BeaconConfig().DepositContractTreeDepth

	if len(s.deposits) == 0 {
		t, err := trie.NewTrie(depth)
		if err != nil {
			return [32]byte{}, errors.Wrap(err, "failed to create deposit trie")
		}

		return t.HashTreeRoot()
	}

	leaves := make([][]byte, len(s.deposits))
	for i, d := range s.deposits {
		leaf := d.Root
		leaves[i] = leaf[:]
	}

	t, err := trie.GenerateTrieFromItems(leaves, depth)
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "failed to generate deposit trie")
	}

	return t.HashTreeRoot()
}

// Deposits returns the accepted deposits in ledger order.
func (s *Sink) Deposits() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Record, len(s.deposits))
	copy(out, s.deposits)

	return out
}

// Load replaces the sink contents. It is not journaled.
func (s *Sink) Load(records []*Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deposits = make([]*Record, len(records))
	copy(s.deposits, records)
}

// DataRoot computes the deposit_data_root of a deposit with amount in gwei.
func DataRoot(pubkey, withdrawalCredentials, signature []byte, amount uint64) ([32]byte, error) {
	if len(pubkey) != PubkeyLength {
		return [32]byte{}, errors.Wrapf(ErrInvalidLength, "pubkey is %d bytes", len(pubkey))
	}

	if len(withdrawalCredentials) != WithdrawalCredentialsLength {
		return [32]byte{}, errors.Wrapf(ErrInvalidLength, "withdrawal credentials are %d bytes", len(withdrawalCredentials))
	}

	if len(signature) != SignatureLength {
		return [32]byte{}, errors.Wrapf(ErrInvalidLength, "signature is %d bytes", len(signature))
	}

	data := &ethpb.Deposit_Data{
		PublicKey:             pubkey,
		WithdrawalCredentials: withdrawalCredentials,
		Amount:                amount,
		Signature:             signature,
	}

	root, err := data.HashTreeRoot()
	if err != nil {
		return [32]byte{}, errors.Wrap(err, "failed to compute deposit data root")
	}

	return root, nil
}
