package deposit

import (
	"encoding/hex"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/ethpandaops/incentive-deposit/pkg/incentive"
)

// Verify checks every deposit signature using one worker per CPU.
func (d *Data) Verify() error {
	return d.VerifyWithWorkers(runtime.NumCPU())
}

// VerifyWithWorkers checks every deposit signature using a pool of workers and
// returns the first failure.
func (d *Data) VerifyWithWorkers(numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}

	tasks := make(chan *ParsedData, len(d.DepositData))
	for _, set := range d.DepositData {
		tasks <- set
	}

	close(tasks)

	var wg sync.WaitGroup

	errChan := make(chan error, numWorkers)

	var verified uint64

	stopProgress := make(chan struct{})
	go reportProgress(len(d.DepositData), &verified, stopProgress)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)

		go verifyWorker(i, tasks, &wg, errChan, &verified)
	}

	wg.Wait()
	close(errChan)
	close(stopProgress)

	for err := range errChan {
		if err != nil {
			return err
		}
	}

	log.WithField("deposits", verified).Debug("Verified deposit signatures")

	return nil
}

func verifyWorker(id int, tasks <-chan *ParsedData, wg *sync.WaitGroup, errChan chan<- error, verified *uint64) {
	defer wg.Done()

	workerLog := log.WithField("worker", id)

	for set := range tasks {
		workerLog.Debugf("Verifying pubkey %s", set.Deposit.PubKey)

		if err := verifyOne(set); err != nil {
			errChan <- err

			return
		}

		atomic.AddUint64(verified, 1)
	}
}

func verifyOne(set *ParsedData) error {
	forkVersion, err := hex.DecodeString(set.Deposit.ForkVersion)
	if err != nil {
		return errors.Wrap(err, "failed to decode fork version")
	}

	ok, err := IsValidDepositSignature(set.PBData, forkVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid deposit for pubkey %s", set.Deposit.PubKey)
	}

	if !ok {
		return errors.Errorf("invalid deposit signature for pubkey %s", set.Deposit.PubKey)
	}

	return nil
}

func reportProgress(total int, verified *uint64, stop chan struct{}) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			done := atomic.LoadUint64(verified)
			log.Infof("Progress: %d/%d deposit signatures verified (%.1f%%)",
				done, total, float64(done)*100/float64(total))
		case <-stop:
			return
		}
	}
}

// CheckPayload recomputes the deposit data root of every validator record in a
// claim payload for the given amount in gwei, the way the sink will on claim.
func CheckPayload(p *incentive.Payload, amount uint64) error {
	for i, v := range p.Validators {
		computed, err := DataRoot(v.Pubkey, p.WithdrawalCredentials, v.Signature, amount)
		if err != nil {
			return errors.Wrapf(err, "validator %d", i)
		}

		if computed != v.Root {
			return errors.Wrapf(ErrRootMismatch, "validator %d (pubkey %s): supplied %s, computed %s", i,
				hex.EncodeToString(v.Pubkey), hex.EncodeToString(v.Root[:]), hex.EncodeToString(computed[:]))
		}
	}

	return nil
}
