package clearinghouse

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Rejection reasons a payer front end commonly returns before adjudication.
var simulatedRejections = []string{
	"Invalid or missing recipient Medicaid ID",
	"Service not covered under recipient's waiver program",
	"Duplicate claim number",
	"Authorization number not on file",
}

// SimulatedClient accepts a configurable fraction of submissions without
// touching the network. It backs development and demo environments where no
// clearinghouse account exists.
type SimulatedClient struct {
	mu         sync.Mutex
	rng        *rand.Rand
	acceptRate float64
	seq        int
}

// NewSimulatedClient returns a client that accepts acceptRate (0..1) of
// submissions. Seed fixes the outcome sequence, which tests rely on.
func NewSimulatedClient(acceptRate float64, seed int64) *SimulatedClient {
	if acceptRate < 0 {
		acceptRate = 0
	}
	if acceptRate > 1 {
		acceptRate = 1
	}
	return &SimulatedClient{
		rng:        rand.New(rand.NewSource(seed)),
		acceptRate: acceptRate,
	}
}

func (c *SimulatedClient) Submit(ctx context.Context, sub Submission) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if sub.EDI == "" {
		return Result{}, fmt.Errorf("submission for claim %s has no EDI payload", sub.ClaimNumber)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++

	now := time.Now().UTC()
	if c.rng.Float64() < c.acceptRate {
		return Result{
			Accepted:        true,
			ClearinghouseID: fmt.Sprintf("SIM-%s-%06d", now.Format("060102"), c.seq),
			SubmittedAt:     now,
		}, nil
	}

	reason := simulatedRejections[c.rng.Intn(len(simulatedRejections))]
	return Result{
		Accepted:        false,
		RejectionReason: reason,
		SubmittedAt:     now,
	}, nil
}
