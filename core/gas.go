package core

// Gas estimation (spec.md §4.7). Directly grounded on gas_table.go's
// DefaultGasCost/gasTable/GasCost map-with-fallback pattern in the
// teacher repo: an operation's cost is looked up by a symbolic key, with
// a logged-once default for anything the table doesn't name.

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Op identifies one ledger-effecting operation kind for gas costing.
type Op string

const (
	OpCreateRepository Op = "create_repository"
	OpCreateCommit     Op = "create_commit"
	OpUpdateReference  Op = "update_reference"
	OpCreateBranch     Op = "create_branch"
	OpDeleteBranch     Op = "delete_branch"
	OpCreateTag        Op = "create_tag"
	OpCreateBlob       Op = "create_blob_object"
	OpCreateTree       Op = "create_tree_object"
)

// DefaultGasCost is used for any Op not present in the table, matching
// gas_table.go's DefaultGasCost fallback.
const DefaultGasCost = 50_000

var gasTable = map[Op]uint64{
	OpCreateRepository: 500_000,
	OpCreateCommit:     150_000,
	OpUpdateReference:  40_000,
	OpCreateBranch:     40_000,
	OpDeleteBranch:     20_000,
	OpCreateTag:        30_000,
	OpCreateBlob:       25_000,
	OpCreateTree:       35_000,
}

var gasWarnOnce sync.Map

// GasCost returns the table cost for op, warning once per unknown op and
// falling back to DefaultGasCost (spec.md §4.7).
func GasCost(op Op) uint64 {
	if c, ok := gasTable[op]; ok {
		return c
	}
	if _, already := gasWarnOnce.LoadOrStore(op, struct{}{}); !already {
		logrus.WithField("op", op).Warn("no gas table entry, using default cost")
	}
	return DefaultGasCost
}

// EstimateBatch sums per-op costs for a batch plus a per-tx base
// overhead, used before submission to decide whether a batch needs to
// split (spec.md §4.7 "estimate_gas(batch)").
func EstimateBatch(ops []Op) uint64 {
	const baseOverhead = 21_000
	var total uint64 = baseOverhead
	for _, op := range ops {
		total += GasCost(op)
	}
	return total
}

// FallbackEstimate is used when the ledger's dry-run estimate is
// unavailable, applying a conservative multiplier over the table sum
// (spec.md §4.7's heuristic fallback).
func FallbackEstimate(ops []Op) uint64 {
	return EstimateBatch(ops) * 12 / 10
}
