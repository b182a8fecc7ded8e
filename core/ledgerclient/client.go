// Package ledgerclient is the ledger collaborator (spec.md §6): the
// external system that accepts batched transactions, estimates gas, and
// confirms finality. Grounded on ledger.go's AddBlock/GetState/Transfer
// surface in the teacher repo, reshaped into an RPC client since WalGit's
// ledger lives out-of-process; transport uses google.golang.org/grpc the
// way the teacher's pkg/config wires service addresses, with
// google.golang.org/protobuf/types/known/structpb as the wire envelope so
// the RPC uses real generated protobuf messages without requiring a
// checked-in .proto toolchain step.
package ledgerclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// BatchRequest is one gas-aware batch submission (spec.md §4.7/§6).
type BatchRequest struct {
	BatchID    string
	Operations []Operation
	GasBudget  uint64
}

// Operation is one ledger-effecting call within a batch.
type Operation struct {
	Kind   string
	Target string
	Fields map[string]string
}

// Receipt is the ledger's response to a submitted batch.
type Receipt struct {
	BatchID   string
	TxDigest  string
	GasUsed   uint64
	Status    string // "success", "failure", or a classifiable error string
	Sequence  uint64
}

// DryRunResult is a gas estimate without committing effects.
type DryRunResult struct {
	EstimatedGas uint64
	WouldSucceed bool
	Reason       string
}

// Client is the ledger collaborator contract.
type Client interface {
	DryRun(ctx context.Context, req BatchRequest) (DryRunResult, error)
	Submit(ctx context.Context, req BatchRequest) (Receipt, error)
	GetReceipt(ctx context.Context, batchID string) (Receipt, error)
	Close() error
}

// GRPCClient is the real ledger collaborator, reached over gRPC.
type GRPCClient struct {
	conn *grpc.ClientConn
}

// Dial connects to the ledger service at addr. Production deployments
// front this with TLS; insecure transport credentials are used here the
// way the teacher's node-to-node RPC defaults to a plaintext devnet
// profile.
func Dial(addr string) (*GRPCClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial ledger service: %w", err)
	}
	return &GRPCClient{conn: conn}, nil
}

func (c *GRPCClient) Close() error { return c.conn.Close() }

func (c *GRPCClient) DryRun(ctx context.Context, req BatchRequest) (DryRunResult, error) {
	in, err := batchToStruct(req)
	if err != nil {
		return DryRunResult{}, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/walgit.ledger.v1.Ledger/DryRun", in, out); err != nil {
		return DryRunResult{}, err
	}
	return DryRunResult{
		EstimatedGas: uint64(out.Fields["estimated_gas"].GetNumberValue()),
		WouldSucceed: out.Fields["would_succeed"].GetBoolValue(),
		Reason:       out.Fields["reason"].GetStringValue(),
	}, nil
}

func (c *GRPCClient) Submit(ctx context.Context, req BatchRequest) (Receipt, error) {
	in, err := batchToStruct(req)
	if err != nil {
		return Receipt{}, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/walgit.ledger.v1.Ledger/Submit", in, out); err != nil {
		return Receipt{}, err
	}
	return receiptFromStruct(out), nil
}

func (c *GRPCClient) GetReceipt(ctx context.Context, batchID string) (Receipt, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"batch_id": batchID})
	if err != nil {
		return Receipt{}, err
	}
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, "/walgit.ledger.v1.Ledger/GetReceipt", in, out); err != nil {
		return Receipt{}, err
	}
	return receiptFromStruct(out), nil
}

func batchToStruct(req BatchRequest) (*structpb.Struct, error) {
	ops := make([]interface{}, len(req.Operations))
	for i, op := range req.Operations {
		fields := make(map[string]interface{}, len(op.Fields))
		for k, v := range op.Fields {
			fields[k] = v
		}
		ops[i] = map[string]interface{}{
			"kind":   op.Kind,
			"target": op.Target,
			"fields": fields,
		}
	}
	return structpb.NewStruct(map[string]interface{}{
		"batch_id":   req.BatchID,
		"operations": ops,
		"gas_budget": float64(req.GasBudget),
	})
}

func receiptFromStruct(s *structpb.Struct) Receipt {
	return Receipt{
		BatchID:  s.Fields["batch_id"].GetStringValue(),
		TxDigest: s.Fields["tx_digest"].GetStringValue(),
		GasUsed:  uint64(s.Fields["gas_used"].GetNumberValue()),
		Status:   s.Fields["status"].GetStringValue(),
		Sequence: uint64(s.Fields["sequence"].GetNumberValue()),
	}
}
