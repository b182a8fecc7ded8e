package core

// Batched transaction engine (spec.md §4.7): builds gas-aware batches of
// ledger operations, estimates cost, submits with retry/backoff behind a
// circuit breaker, and reports progress through a channel of
// BatchStateChange events. Grounded on transactions.go's TxPool
// AddTx/Pick/Snapshot/Run queue-and-drain idiom in the teacher repo.

import (
	"context"

	"walgit/core/ledgerclient"
)

// BatchState is one step of the push-batch state machine (spec.md §4.7,
// §4.10's push flow).
type BatchState uint8

const (
	StateBuildingTx BatchState = iota
	StateEstimating
	StateSubmitting
	StateConfirming
	StateFinalized
	StateRetrying
	StateFailed
)

func (s BatchState) String() string {
	switch s {
	case StateBuildingTx:
		return "building_tx"
	case StateEstimating:
		return "estimating"
	case StateSubmitting:
		return "submitting"
	case StateConfirming:
		return "confirming"
	case StateFinalized:
		return "finalized"
	case StateRetrying:
		return "retrying"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BatchStateChange is one progress event, streamed to a caller-supplied
// channel so a CLI collaborator can render a progress bar (spec.md §4.7).
type BatchStateChange struct {
	BatchID string
	State   BatchState
	Attempt int
	Detail  string
	Err     error
}

// MaxBatchOps caps how many operations one batch carries before
// TxEngine splits it, matching spec.md §4.7's size-based batching.
const MaxBatchOps = 64

// BuildBatches groups ops into batches of at most MaxBatchOps, splitting
// further if the table-estimated gas would exceed gasBudget (spec.md
// §4.7 "build(ops) -> batches").
func BuildBatches(ops []Op, gasBudget uint64) [][]Op {
	var batches [][]Op
	var current []Op
	var currentGas uint64 = 21_000

	for _, op := range ops {
		cost := GasCost(op)
		if len(current) >= MaxBatchOps || (len(current) > 0 && currentGas+cost > gasBudget) {
			batches = append(batches, current)
			current = nil
			currentGas = 21_000
		}
		current = append(current, op)
		currentGas += cost
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// TxEngine drives one batch through BuildingTx -> Estimating ->
// Submitting -> Confirming -> Finalized, or into Retrying/Failed.
type TxEngine struct {
	Ledger  ledgerclient.Client
	Breaker *Breaker
	Retry   RetryPolicy
}

// NewTxEngine wires a ledger collaborator with the default retry/breaker
// policy.
func NewTxEngine(ledger ledgerclient.Client) *TxEngine {
	return &TxEngine{
		Ledger:  ledger,
		Breaker: NewBreaker(5, defaultBreakerCooldown),
		Retry:   DefaultRetryPolicy,
	}
}

// SubmitAndWait runs one batch through the full state machine, emitting
// progress on events if non-nil (spec.md §4.7 "submit_and_wait(batch)").
// events is closed by the caller's consumption pattern; this method
// never closes it, since a caller may reuse one channel across batches.
func (e *TxEngine) SubmitAndWait(ctx context.Context, req ledgerclient.BatchRequest, events chan<- BatchStateChange) (ledgerclient.Receipt, error) {
	emit := func(state BatchState, attempt int, detail string, err error) {
		if events == nil {
			return
		}
		select {
		case events <- BatchStateChange{BatchID: req.BatchID, State: state, Attempt: attempt, Detail: detail, Err: err}:
		case <-ctx.Done():
		}
	}

	emit(StateBuildingTx, 0, "batch assembled", nil)

	emit(StateEstimating, 0, "", nil)
	dry, err := e.Ledger.DryRun(ctx, req)
	if err != nil {
		emit(StateFailed, 0, "", err)
		return ledgerclient.Receipt{}, classifyLedgerErr(err)
	}
	if !dry.WouldSucceed {
		err := ClassifyLedgerError(dry.Reason)
		emit(StateFailed, 0, dry.Reason, err)
		return ledgerclient.Receipt{}, err
	}

	var receipt ledgerclient.Receipt
	attempt := 0
	submitErr := e.Retry.Do(ctx, func(a int) error {
		attempt = a
		if !e.Breaker.Allow() {
			return NetworkErrorf(NetConnection, "circuit breaker open", nil)
		}
		if a > 1 {
			emit(StateRetrying, a, "resubmitting batch", nil)
		} else {
			emit(StateSubmitting, a, "", nil)
		}
		r, err := e.Ledger.Submit(ctx, req)
		if err != nil {
			e.Breaker.RecordFailure()
			return classifyLedgerErr(err)
		}
		if r.Status != "success" {
			e.Breaker.RecordFailure()
			return ClassifyLedgerError(r.Status)
		}
		e.Breaker.RecordSuccess()
		receipt = r
		return nil
	})
	if submitErr != nil {
		emit(StateFailed, attempt, "", submitErr)
		return ledgerclient.Receipt{}, submitErr
	}

	emit(StateConfirming, attempt, receipt.TxDigest, nil)
	confirmed, err := e.Ledger.GetReceipt(ctx, req.BatchID)
	if err != nil {
		emit(StateFailed, attempt, "", err)
		return ledgerclient.Receipt{}, IOError("confirm batch receipt", err)
	}

	emit(StateFinalized, attempt, confirmed.TxDigest, nil)
	return confirmed, nil
}

func classifyLedgerErr(err error) error {
	if ce, ok := AsCoreError(err); ok {
		return ce
	}
	return ClassifyLedgerError(err.Error())
}
