package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chair4ce/swarm/pkg/blackboard"
)

// researchRealtime is the push-based variant: one subscription per task
// feeds a local mirror, and every convergence check reads the mirror
// instead of re-querying the backend.
func (c *Coordinator) researchRealtime(ctx context.Context, topic string, sub blackboard.Subscriber) (*Result, error) {
	subjects := c.subjects(topic)
	log.Printf("[Coordinator] Starting realtime swarm research on %q (subjects: %d, max rounds: %d)",
		topic, len(subjects), c.opts.MaxRounds)

	subscription, err := sub.Subscribe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to board events: %w", err)
	}
	defer subscription.Close()

	mirror := blackboard.NewMirror()
	go mirror.Run(subscription)

	round := 0
	noNewFindings := 0
	previousCount := 0

	for round < c.opts.MaxRounds && noNewFindings < c.opts.ConvergenceThreshold {
		round++
		log.Printf("[Coordinator] Round %d/%d", round, c.opts.MaxRounds)

		if round == 1 {
			if err := c.initialSearch(ctx, topic, subjects); err != nil {
				return nil, err
			}
		} else {
			if err := c.followUpSearch(ctx, topic, lastN(mirror.Questions(), recentQuestions)); err != nil {
				return nil, err
			}
		}

		// Give the round's appends time to propagate to the mirror before
		// anything reads it. Bounded and best-effort, not a delivery
		// guarantee.
		if err := c.settle(ctx); err != nil {
			return nil, err
		}

		if err := c.analyzeAndQuestion(ctx, topic, mirror.Findings()); err != nil {
			return nil, err
		}
		if err := c.settle(ctx); err != nil {
			return nil, err
		}

		currentCount := mirror.FindingCount()
		if currentCount == previousCount {
			noNewFindings++
			log.Printf("[Coordinator] No new findings (%d/%d)", noNewFindings, c.opts.ConvergenceThreshold)
		} else {
			noNewFindings = 0
			log.Printf("[Coordinator] %d new findings (via realtime)", currentCount-previousCount)
		}
		previousCount = currentCount
	}

	return c.finish(ctx, topic, round, "redis-realtime", mirror.MessageCount())
}

// settle waits the configured propagation delay, honoring cancellation.
func (c *Coordinator) settle(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.opts.SettleDelay):
		return nil
	}
}
