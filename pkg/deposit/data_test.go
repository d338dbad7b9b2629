package deposit_test

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	ethpb "github.com/prysmaticlabs/prysm/v5/proto/prysm/v1alpha1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/incentive-deposit/pkg/deposit"
	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

const holeskyWithdrawalCred = "0100000000000000000000004124cd4a34790c0da4cbcdd89f536b9508b8bc41"

func holeskyDeposits() []*deposit.Deposit {
	return []*deposit.Deposit{
		{
			PubKey:                "a63bffb2b9be4830811150bdaefd904d32aad8a09998aa9bc836cda7cbab97c594293b995199afe659560ee7a930149d",
			WithdrawalCredentials: holeskyWithdrawalCred,
			Amount:                32000000000,
			Signature:             "93f06f7867b898a807d9425c2e647bebcf23bc16adca708ae54958949aced24acd4ccb813b04bb9a431fd6df437f689614246109b008eadafc444f2bd5f0323005b77f4c2810f9e3630a91ffc5859bd2a92ee84aeb97b352e5e2f1f90cf84aca",
			DepositMessageRoot:    "7fe71257fdc44d492ba5c46ee4a3c8692fecfdfb3377abacd93e3b540fe7acbb",
			DepositDataRoot:       "422b4b4ec62d367ce42e0ae98b6b8a1351a480cce3b2e31ac6c3fe205827db3f",
			ForkVersion:           "01017000",
			NetworkName:           "holesky",
			DepositCliVersion:     "10.6.0",
		},
		{
			PubKey:                "83e8519e3c69669c1141ef7a5e66c710c67ab52cc6f57c4ee35200c35154daa3cdc18bc52a47ef6c5900df29aedcf302",
			WithdrawalCredentials: holeskyWithdrawalCred,
			Amount:                32000000000,
			Signature:             "aedf8d96a3a88d50249925b765ff8ea29ae621e01f2da05f733e08aeea8644204ae6e90756c160f4c172140e67cf57640201401961b4d8d76276400b07ad242e4feb185db90ffe4a84589b8ff57874b27117dd988b25684cf86ae185e9ecf5a7",
			DepositMessageRoot:    "ecf288cca52578464f4f94caa42650d8d8a6b6ad7ef99c4851f4da7ef807ef7b",
			DepositDataRoot:       "c70451a6a86e3623d2cbc0ffd2586f8d0033ab8cc198286def319e2a42ea5664",
			ForkVersion:           "01017000",
			NetworkName:           "holesky",
			DepositCliVersion:     "10.6.0",
		},
		{
			PubKey:                "ae17df015acee11b422707e25ba7ca3900a425a1107660a4409d2dca35e1535ce5b871c61b240c331bdb18fcf811944b",
			WithdrawalCredentials: holeskyWithdrawalCred,
			Amount:                32000000000,
			Signature:             "ab07ecd8008365562ecdf7dc698cf9e24957c7442364f52b3dbb96020006e7edbda75ed2fb58fa9085c240102a2c526009e3c7a9740221c624292f4b7c06a58cbcc8b59f6bcd2cf37072b6773dac3ff3ac1c97be0e94f4cf8340dd5040c19b44",
			DepositMessageRoot:    "f9f18be072a4eb609e78943f33f6d67b279c2868831cb71dcaee2acd7ecf38d7",
			DepositDataRoot:       "4bc1c4179e77fe4acea3c3b8defda5bf735dd9e669f0d6ebaaf1ec2f8e27a079",
			ForkVersion:           "01017000",
			NetworkName:           "holesky",
			DepositCliVersion:     "10.6.0",
		},
	}
}

func mainnetDeposit() *deposit.Deposit {
	return &deposit.Deposit{
		PubKey:                "a63bffb2b9be4830811150bdaefd904d32aad8a09998aa9bc836cda7cbab97c594293b995199afe659560ee7a930149d",
		WithdrawalCredentials: holeskyWithdrawalCred,
		Amount:                32000000000,
		Signature:             "913b0070abb6f772c4c4533a921865617fe949cf34caef892e5ce7d516ea1be3e5e401a26744dab0310bdf59f77a1f12186ac3d1aae342a00a6f0090b94c98f69481e1a7f3cb45a1cb794607aa8f65b752cd40e97c0767be3585308f1b9e5ef2",
		DepositMessageRoot:    "7fe71257fdc44d492ba5c46ee4a3c8692fecfdfb3377abacd93e3b540fe7acbb",
		DepositDataRoot:       "a3b7db7d5bb99bc7591e42d9d24a69ba3591a292faac4cddfecf4af780235a0e",
		ForkVersion:           "00000000",
		NetworkName:           "mainnet",
		DepositCliVersion:     "2.8.0",
	}
}

func writeDeposits(t *testing.T, deposits []*deposit.Deposit) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deposit_data.json")

	raw, err := json.Marshal(deposits)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	return path
}

func TestNewDepositData(t *testing.T) {
	holeskyFile := writeDeposits(t, holeskyDeposits())

	badHex := holeskyDeposits()[:1]
	badHex[0].Signature = "zz"
	badHexFile := writeDeposits(t, badHex)

	tests := []struct {
		name          string
		path          string
		expectedCount int
		wantErr       bool
	}{
		{
			name:          "valid holesky deposit data",
			path:          holeskyFile,
			expectedCount: 3,
		},
		{
			name:    "invalid file path",
			path:    "nonexistent.json",
			wantErr: true,
		},
		{
			name:    "undecodable signature",
			path:    badHexFile,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := deposit.NewDepositData(tt.path, "holesky", "0x"+holeskyWithdrawalCred, 32000000000, tt.expectedCount)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Len(t, got.DepositData, tt.expectedCount)
			assert.Equal(t, holeskyWithdrawalCred, got.ExpectedData.WithdrawalCred)

			want, err := hex.DecodeString(holeskyDeposits()[0].DepositDataRoot)
			require.NoError(t, err)
			assert.Equal(t, want, got.DepositData[0].Root[:])
		})
	}
}

func TestData_Validate(t *testing.T) {
	expected := func(count int) *deposit.ExpectedData {
		return &deposit.ExpectedData{
			Network:        "holesky",
			Amount:         32000000000,
			WithdrawalCred: holeskyWithdrawalCred,
			Count:          count,
		}
	}

	tests := []struct {
		name     string
		mutate   func(deposits []*deposit.Deposit) []*deposit.Deposit
		expected *deposit.ExpectedData
		wantErr  string
	}{
		{
			name:     "valid data",
			mutate:   func(d []*deposit.Deposit) []*deposit.Deposit { return d },
			expected: expected(3),
		},
		{
			name:     "count not checked when zero",
			mutate:   func(d []*deposit.Deposit) []*deposit.Deposit { return d[:2] },
			expected: expected(0),
		},
		{
			name:     "invalid count",
			mutate:   func(d []*deposit.Deposit) []*deposit.Deposit { return d[:2] },
			expected: expected(3),
			wantErr:  "count mismatch",
		},
		{
			name: "network mismatch",
			mutate: func(d []*deposit.Deposit) []*deposit.Deposit {
				d[1].NetworkName = "mainnet"

				return d
			},
			expected: expected(3),
			wantErr:  "network mismatch",
		},
		{
			name: "amount mismatch",
			mutate: func(d []*deposit.Deposit) []*deposit.Deposit {
				d[0].Amount = 16000000000

				return d
			},
			expected: expected(3),
			wantErr:  "amount mismatch",
		},
		{
			name: "deposit data root mismatch",
			mutate: func(d []*deposit.Deposit) []*deposit.Deposit {
				d[2].DepositDataRoot = d[1].DepositDataRoot

				return d
			},
			expected: expected(3),
			wantErr:  "does not match supplied deposit_data_root",
		},
		{
			name: "withdrawal credentials changed after signing",
			mutate: func(d []*deposit.Deposit) []*deposit.Deposit {
				d[1].WithdrawalCredentials = "0100000000000000000000005124cd4a34790c0da4cbcdd89f536b9508b8bc42"

				return d
			},
			expected: &deposit.ExpectedData{Network: "holesky", Amount: 32000000000},
			wantErr:  "does not match supplied deposit_data_root",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deposits := tt.mutate(holeskyDeposits())

			data := &deposit.Data{ExpectedData: tt.expected}

			for _, d := range deposits {
				parsed, err := d.Parse()
				require.NoError(t, err)

				data.DepositData = append(data.DepositData, parsed)
			}

			err := data.Validate()
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestIsValidDepositSignature(t *testing.T) {
	holesky := holeskyDeposits()[0]
	mainnet := mainnetDeposit()

	tests := []struct {
		name        string
		pubkey      string
		signature   string
		forkVersion string
		amount      uint64
		wantErr     bool
	}{
		{
			name:        "valid holesky signature",
			pubkey:      holesky.PubKey,
			signature:   holesky.Signature,
			forkVersion: "01017000",
			amount:      32000000000,
		},
		{
			name:        "valid mainnet signature",
			pubkey:      mainnet.PubKey,
			signature:   mainnet.Signature,
			forkVersion: "00000000",
			amount:      32000000000,
		},
		{
			name:        "wrong fork version for network",
			pubkey:      holesky.PubKey,
			signature:   holesky.Signature,
			forkVersion: "00000000",
			amount:      32000000000,
			wantErr:     true,
		},
		{
			name:        "invalid amount",
			pubkey:      holesky.PubKey,
			signature:   holesky.Signature,
			forkVersion: "01017000",
			amount:      16000000000,
			wantErr:     true,
		},
		{
			name:        "mismatched signature for pubkey",
			pubkey:      holeskyDeposits()[1].PubKey,
			signature:   holesky.Signature,
			forkVersion: "01017000",
			amount:      32000000000,
			wantErr:     true,
		},
	}

	withdrawalCreds, err := hex.DecodeString(holeskyWithdrawalCred)
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forkVersion, err := hex.DecodeString(tt.forkVersion)
			require.NoError(t, err)

			pubkey, err := hex.DecodeString(tt.pubkey)
			require.NoError(t, err)

			signature, err := hex.DecodeString(tt.signature)
			require.NoError(t, err)

			ok, err := deposit.IsValidDepositSignature(&ethpb.Deposit_Data{
				PublicKey:             pubkey,
				WithdrawalCredentials: withdrawalCreds,
				Amount:                tt.amount,
				Signature:             signature,
			}, forkVersion)
			if tt.wantErr {
				require.False(t, ok)
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestData_Verify(t *testing.T) {
	parse := func(d *deposit.Deposit) *deposit.ParsedData {
		parsed, err := d.Parse()
		require.NoError(t, err)

		return parsed
	}

	badFork := holeskyDeposits()[0]
	badFork.ForkVersion = "invalid"

	wrongNetwork := holeskyDeposits()[0]
	wrongNetwork.ForkVersion = "00000000"

	tests := []struct {
		name     string
		deposits []*deposit.ParsedData
		wantErr  bool
	}{
		{
			name:     "valid deposits",
			deposits: []*deposit.ParsedData{parse(holeskyDeposits()[0]), parse(holeskyDeposits()[1])},
		},
		{
			name:     "invalid fork version",
			deposits: []*deposit.ParsedData{parse(badFork)},
			wantErr:  true,
		},
		{
			name:     "one deposit signed for another network",
			deposits: []*deposit.ParsedData{parse(holeskyDeposits()[0]), parse(wrongNetwork)},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		for _, workers := range []int{0, 1, 4} {
			t.Run(fmt.Sprintf("%s/%d workers", tt.name, workers), func(t *testing.T) {
				err := (&deposit.Data{DepositData: tt.deposits}).VerifyWithWorkers(workers)
				if tt.wantErr {
					require.Error(t, err)

					return
				}

				require.NoError(t, err)
			})
		}
	}
}

func TestData_VerifyAllHolesky(t *testing.T) {
	data, err := deposit.NewDepositData(writeDeposits(t, holeskyDeposits()), "holesky", holeskyWithdrawalCred, 32000000000, 3)
	require.NoError(t, err)
	require.NoError(t, data.Verify())
}

func TestData_Payload(t *testing.T) {
	data, err := deposit.NewDepositData(writeDeposits(t, holeskyDeposits()), "holesky", holeskyWithdrawalCred, 32000000000, 3)
	require.NoError(t, err)
	require.NoError(t, data.Validate())

	payload, err := data.Payload()
	require.NoError(t, err)

	raw, err := payload.Encode()
	require.NoError(t, err)
	require.Len(t, raw, int(incentive.PayloadLength(3)))

	assert.Equal(t, holeskyWithdrawalCred, hex.EncodeToString(raw[:incentive.WithdrawalCredentialsLength]))

	decoded, err := incentive.DecodePayload(raw, 3)
	require.NoError(t, err)

	for i, d := range holeskyDeposits() {
		assert.Equal(t, d.PubKey, hex.EncodeToString(decoded.Validators[i].Pubkey))
		assert.Equal(t, d.Signature, hex.EncodeToString(decoded.Validators[i].Signature))
		assert.Equal(t, d.DepositDataRoot, hex.EncodeToString(decoded.Validators[i].Root[:]))
	}

	_, err = (&deposit.Data{}).Payload()
	require.Error(t, err)
}

func TestCheckPayload(t *testing.T) {
	data, err := deposit.NewDepositData(writeDeposits(t, holeskyDeposits()), "holesky", holeskyWithdrawalCred, 32000000000, 3)
	require.NoError(t, err)

	payload, err := data.Payload()
	require.NoError(t, err)

	require.NoError(t, deposit.CheckPayload(payload, 32000000000))
	require.ErrorIs(t, deposit.CheckPayload(payload, 16000000000), deposit.ErrRootMismatch)

	payload.Validators[2].Root[0] ^= 0xff
	require.ErrorIs(t, deposit.CheckPayload(payload, 32000000000), deposit.ErrRootMismatch)
}
