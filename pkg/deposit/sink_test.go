package deposit_test

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/state"
)

type vector struct {
	pubkey    string
	wc        string
	signature string
	root      string
}

var (
	firstDeposit = vector{
		pubkey:    "0x85e52247873439b180471ceb94ef9966c2cef1c194cc926e7d6494fecccbcdc076bcd751309f174dd8b7e21402c85ac0",
		wc:        "0x0100000000000000000000000ae055097c6d159879521c384f1d2123d1f195e6",
		signature: "0x869a92ea96afe7a08e19c0b89259c52d156f83b9af83d6e411f5f39ad857a06a3b9885d5f8d7ddb9371256fe181df4e011463e93b23af2653b501b9ebcfc32131ae7b8a1c815c6d8b2e7accb890f06f0a0bc4604050d658241ffb78220a2db58",
		root:      "0xdcc623abcf86090d33c63845a83b13064e558ea9aa38d5db07d2dd412bebc9f0",
	}
	secondDeposit = vector{
		pubkey:    "0xa9529f1f7ac7e6607ac605e2152053e3d3a8ce7c48308654d452f5cb8a1eb5e238c4b9e992caf8ec6923994b07e4d236",
		wc:        "0x0100000000000000000000000ae055097c6d159879521c384f1d2123d1f195e6",
		signature: "0xb4c4fa967494ad174355ea8da67ddd73e49f0936ffbf95f4096031cd00a44a45a89d12f17c58b80de6db465581635c5412876fb12ed882eaa1f744cf5c71f493d8a2c5eee30d7181f8e70a5ebd9b43d2015e1dfbc1b466e307faf850601930f1",
		root:      "0xef472710da79583c8f513e816e178a746afe060a2ed5b0032696d898909d1d83",
	}

	invalidRoot = mustRoot("0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef")

	thirtyTwoEther = new(uint256.Int).Mul(uint256.NewInt(32), uint256.NewInt(1_000_000_000_000_000_000))
	sinkAddress    = common.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		panic(err)
	}

	return b
}

func mustRoot(s string) [32]byte {
	var root [32]byte

	copy(root[:], mustHex(s))

	return root
}

func submit(sink *deposit.Sink, v vector, root [32]byte, value *uint256.Int) error {
	return sink.Submit(context.Background(), mustHex(v.pubkey), mustHex(v.wc), mustHex(v.signature), root, value)
}

func TestDataRoot(t *testing.T) {
	tests := []struct {
		name      string
		pubkey    string
		wc        string
		signature string
		amount    uint64
		want      string
		wantErr   error
	}{
		{
			name:      "first deposit",
			pubkey:    firstDeposit.pubkey,
			wc:        firstDeposit.wc,
			signature: firstDeposit.signature,
			amount:    32000000000,
			want:      firstDeposit.root,
		},
		{
			name:      "second deposit",
			pubkey:    secondDeposit.pubkey,
			wc:        secondDeposit.wc,
			signature: secondDeposit.signature,
			amount:    32000000000,
			want:      secondDeposit.root,
		},
		{
			name:      "deposit cli output",
			pubkey:    holeskyDeposits()[1].PubKey,
			wc:        holeskyDeposits()[1].WithdrawalCredentials,
			signature: holeskyDeposits()[1].Signature,
			amount:    holeskyDeposits()[1].Amount,
			want:      holeskyDeposits()[1].DepositDataRoot,
		},
		{
			name:      "short pubkey",
			pubkey:    "0x85e522",
			wc:        firstDeposit.wc,
			signature: firstDeposit.signature,
			amount:    32000000000,
			wantErr:   deposit.ErrInvalidLength,
		},
		{
			name:      "short signature",
			pubkey:    firstDeposit.pubkey,
			wc:        firstDeposit.wc,
			signature: "0x869a92",
			amount:    32000000000,
			wantErr:   deposit.ErrInvalidLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deposit.DataRoot(mustHex(tt.pubkey), mustHex(tt.wc), mustHex(tt.signature), tt.amount)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, strings.TrimPrefix(tt.want, "0x"), hex.EncodeToString(got[:]))
		})
	}
}

func TestSink_Submit(t *testing.T) {
	tests := []struct {
		name    string
		root    [32]byte
		value   *uint256.Int
		wantErr error
	}{
		{
			name:  "accepted",
			root:  mustRoot(firstDeposit.root),
			value: thirtyTwoEther,
		},
		{
			name:    "root mismatch",
			root:    invalidRoot,
			value:   thirtyTwoEther,
			wantErr: deposit.ErrRootMismatch,
		},
		{
			name:    "value below one ether",
			root:    mustRoot(firstDeposit.root),
			value:   uint256.NewInt(999_999_999_999_999_999),
			wantErr: deposit.ErrInvalidValue,
		},
		{
			name:    "value not a gwei multiple",
			root:    mustRoot(firstDeposit.root),
			value:   new(uint256.Int).Add(thirtyTwoEther, uint256.NewInt(1)),
			wantErr: deposit.ErrInvalidValue,
		},
		{
			name:    "value signed for a different amount",
			root:    mustRoot(firstDeposit.root),
			value:   new(uint256.Int).Div(thirtyTwoEther, uint256.NewInt(2)),
			wantErr: deposit.ErrRootMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := deposit.NewSink(sinkAddress, nil)

			err := submit(sink, firstDeposit, tt.root, tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, uint64(0), sink.Count())

				return
			}

			require.NoError(t, err)
			require.Equal(t, uint64(1), sink.Count())

			rec := sink.Deposits()[0]
			assert.Equal(t, uint64(0), rec.Index)
			assert.Equal(t, uint64(32000000000), rec.Amount)
			assert.Equal(t, mustRoot(firstDeposit.root), rec.Root)
		})
	}
}

func TestSink_Root(t *testing.T) {
	sink := deposit.NewSink(sinkAddress, nil)

	_, err := sink.Root()
	require.NoError(t, err)

	require.NoError(t, submit(sink, firstDeposit, mustRoot(firstDeposit.root), thirtyTwoEther))

	root, err := sink.Root()
	require.NoError(t, err)
	assert.Equal(t, "4e84f51e6b1cf47fd51d021635d791b9c99fe915990061a5a10390b9140e3592", hex.EncodeToString(root[:]))

	require.NoError(t, submit(sink, secondDeposit, mustRoot(secondDeposit.root), thirtyTwoEther))

	root, err = sink.Root()
	require.NoError(t, err)
	assert.Equal(t, "332ba4af23d9afe9a5ac1c80604c72a995686b8decfdae91f69798bc93813257", hex.EncodeToString(root[:]))
	assert.Equal(t, uint64(2), sink.Count())
}

func TestSink_Revert(t *testing.T) {
	journal := state.NewJournal()
	exec := state.NewExecutor(journal)
	sink := deposit.NewSink(sinkAddress, journal)

	require.NoError(t, exec.Execute(context.Background(), func(ctx context.Context) error {
		return submit(sink, firstDeposit, mustRoot(firstDeposit.root), thirtyTwoEther)
	}))

	err := exec.Execute(context.Background(), func(ctx context.Context) error {
		if err := submit(sink, secondDeposit, mustRoot(secondDeposit.root), thirtyTwoEther); err != nil {
			return err
		}

		return submit(sink, firstDeposit, invalidRoot, thirtyTwoEther)
	})
	require.ErrorIs(t, err, deposit.ErrRootMismatch)

	require.Equal(t, uint64(1), sink.Count())

	root, err := sink.Root()
	require.NoError(t, err)
	assert.Equal(t, "4e84f51e6b1cf47fd51d021635d791b9c99fe915990061a5a10390b9140e3592", hex.EncodeToString(root[:]))
}
