package core

import "testing"

func TestGasCostKnownOps(t *testing.T) {
	if GasCost(OpCreateCommit) != 150_000 {
		t.Fatalf("unexpected cost for OpCreateCommit: %d", GasCost(OpCreateCommit))
	}
	if GasCost(OpUpdateReference) != 40_000 {
		t.Fatalf("unexpected cost for OpUpdateReference: %d", GasCost(OpUpdateReference))
	}
}

func TestGasCostFallsBackForUnknownOp(t *testing.T) {
	if got := GasCost(Op("totally_unknown_op")); got != DefaultGasCost {
		t.Fatalf("expected DefaultGasCost fallback, got %d", got)
	}
}

func TestEstimateBatchIncludesBaseOverhead(t *testing.T) {
	ops := []Op{OpCreateCommit, OpUpdateReference}
	want := uint64(21_000) + GasCost(OpCreateCommit) + GasCost(OpUpdateReference)
	if got := EstimateBatch(ops); got != want {
		t.Fatalf("EstimateBatch = %d, want %d", got, want)
	}
}

func TestFallbackEstimateAppliesMultiplier(t *testing.T) {
	ops := []Op{OpCreateCommit}
	base := EstimateBatch(ops)
	want := base * 12 / 10
	if got := FallbackEstimate(ops); got != want {
		t.Fatalf("FallbackEstimate = %d, want %d", got, want)
	}
}

func TestBuildBatchesSplitsOnOpCount(t *testing.T) {
	ops := make([]Op, MaxBatchOps+10)
	for i := range ops {
		ops[i] = OpCreateBranch
	}
	batches := BuildBatches(ops, 1_000_000_000)
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches from op-count splitting, got %d", len(batches))
	}
	if len(batches[0]) != MaxBatchOps {
		t.Fatalf("expected first batch to be full at %d ops, got %d", MaxBatchOps, len(batches[0]))
	}
	if len(batches[1]) != 10 {
		t.Fatalf("expected remainder batch of 10 ops, got %d", len(batches[1]))
	}
}

func TestBuildBatchesSplitsOnGasBudget(t *testing.T) {
	ops := []Op{OpCreateRepository, OpCreateRepository, OpCreateRepository}
	// Each OpCreateRepository costs 500_000; a tight budget forces a
	// split after the first operation.
	batches := BuildBatches(ops, 600_000)
	if len(batches) < 2 {
		t.Fatalf("expected gas-budget splitting to yield multiple batches, got %d", len(batches))
	}
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total != len(ops) {
		t.Fatalf("batches lost operations: got %d total, want %d", total, len(ops))
	}
}
