package ledgerclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Fake is an in-memory Client for tests, avoiding a live ledger service.
type Fake struct {
	mu       sync.Mutex
	receipts map[string]Receipt
	seq      uint64

	// NextStatus, if set, overrides the status the next Submit returns
	// (e.g. "insufficient gas" to exercise classify.go).
	NextStatus string

	// Submitted records every batch handed to Submit, in order, so tests
	// can inspect exactly which operations a call produced.
	Submitted []BatchRequest
}

func NewFake() *Fake {
	return &Fake{receipts: make(map[string]Receipt)}
}

func (f *Fake) DryRun(ctx context.Context, req BatchRequest) (DryRunResult, error) {
	var gas uint64
	for range req.Operations {
		gas += 40_000
	}
	return DryRunResult{EstimatedGas: gas + 21_000, WouldSucceed: gas <= req.GasBudget}, nil
}

func (f *Fake) Submit(ctx context.Context, req BatchRequest) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Submitted = append(f.Submitted, req)

	status := "success"
	if f.NextStatus != "" {
		status = f.NextStatus
		f.NextStatus = ""
	}
	seq := atomic.AddUint64(&f.seq, 1)
	r := Receipt{
		BatchID:  req.BatchID,
		TxDigest: fmt.Sprintf("fake-digest-%d", seq),
		GasUsed:  uint64(len(req.Operations)) * 40_000,
		Status:   status,
		Sequence: seq,
	}
	f.receipts[req.BatchID] = r
	return r, nil
}

func (f *Fake) GetReceipt(ctx context.Context, batchID string) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[batchID]
	if !ok {
		return Receipt{}, fmt.Errorf("no receipt for batch %q", batchID)
	}
	return r, nil
}

func (f *Fake) Close() error { return nil }
