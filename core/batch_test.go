package core

import (
	"context"
	"testing"

	"walgit/core/ledgerclient"
)

func TestSubmitAndWaitHappyPath(t *testing.T) {
	ledger := ledgerclient.NewFake()
	engine := NewTxEngine(ledger)
	req := ledgerclient.BatchRequest{
		BatchID:    "batch-1",
		Operations: []ledgerclient.Operation{{Kind: string(OpUpdateReference), Target: "refs/heads/main"}},
		GasBudget:  FallbackEstimate([]Op{OpUpdateReference}),
	}

	events := make(chan BatchStateChange, 16)
	receipt, err := engine.SubmitAndWait(context.Background(), req, events)
	if err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	if receipt.Status != "success" {
		t.Fatalf("expected success receipt, got %+v", receipt)
	}
	close(events)

	var states []BatchState
	for e := range events {
		states = append(states, e.State)
	}
	want := []BatchState{StateBuildingTx, StateEstimating, StateSubmitting, StateConfirming, StateFinalized}
	if len(states) != len(want) {
		t.Fatalf("unexpected state sequence %v", states)
	}
	for i, s := range want {
		if states[i] != s {
			t.Fatalf("state[%d] = %s, want %s", i, states[i], s)
		}
	}
}

func TestSubmitAndWaitRejectsInsufficientGasBudget(t *testing.T) {
	ledger := ledgerclient.NewFake()
	engine := NewTxEngine(ledger)
	req := ledgerclient.BatchRequest{
		BatchID:    "batch-underfunded",
		Operations: []ledgerclient.Operation{{Kind: string(OpCreateCommit)}},
		GasBudget:  1, // far below the fake ledger's estimate, forces WouldSucceed=false
	}
	_, err := engine.SubmitAndWait(context.Background(), req, nil)
	if err == nil {
		t.Fatalf("expected an error for an under-budgeted dry run")
	}
}

func TestSubmitAndWaitSurfacesNonSuccessStatus(t *testing.T) {
	ledger := ledgerclient.NewFake()
	ledger.NextStatus = "insufficient gas for operation"
	engine := NewTxEngine(ledger)
	engine.Retry = RetryPolicy{MaxAttempts: 1}
	req := ledgerclient.BatchRequest{
		BatchID:    "batch-gas-fail",
		Operations: []ledgerclient.Operation{{Kind: string(OpCreateCommit)}},
		GasBudget:  1_000_000,
	}
	_, err := engine.SubmitAndWait(context.Background(), req, nil)
	ce, ok := AsCoreError(err)
	if !ok || ce.Kind != KindLedger {
		t.Fatalf("expected a classified ledger error, got %v", err)
	}
}
