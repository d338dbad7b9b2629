package incentive

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// PlanAllocations splits beneficiaries into at most groups batches of equal
// size (the last one may be shorter), preserving order and dropping duplicates.
// Each batch is meant for one AllocateMany call.
func PlanAllocations(beneficiaries []common.Address, groups int) ([][]common.Address, error) {
	if groups <= 0 {
		return nil, errors.Errorf("group count must be positive, got %d", groups)
	}

	seen := make(map[common.Address]struct{}, len(beneficiaries))
	unique := make([]common.Address, 0, len(beneficiaries))

	for _, addr := range beneficiaries {
		if _, ok := seen[addr]; ok {
			log.WithField("beneficiary", addr.Hex()).Warn("Duplicate beneficiary dropped from allocation plan")

			continue
		}

		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}

	if len(unique) == 0 {
		return [][]common.Address{}, nil
	}

	size := (len(unique) + groups - 1) / groups

	plan := make([][]common.Address, 0, groups)
	for start := 0; start < len(unique); start += size {
		end := start + size
		if end > len(unique) {
			end = len(unique)
		}

		plan = append(plan, unique[start:end])
	}

	return plan, nil
}
