package node

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paper-piper/Dini/pkg/logging"
)

// DefaultReconnectPollInterval is how often the reconnect worker sweeps
// its pending set for addresses due another dial attempt.
const DefaultReconnectPollInterval = 5 * time.Second

// pendingReconnect tracks one address a role asked to keep retrying,
// tagged with a UUID so repeated attempts for the same address are
// traceable across log lines (mirrors the teacher's message_id bookkeeping
// in internal/node/retry_worker.go, applied here to dial attempts instead
// of outbox messages).
type pendingReconnect struct {
	addr        Address
	attemptID   string
	retryCount  int
	nextAttempt time.Time
}

// ReconnectWorker periodically retries connecting to addresses a role
// couldn't reach on first try (e.g. a bootstrap directory entry that was
// briefly down), with exponential backoff, following the teacher's
// poll-ticker retry-worker shape.
type ReconnectWorker struct {
	n            *Node
	log          *logging.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	pending map[string]*pendingReconnect

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReconnectWorker returns a worker bound to n, not yet started.
func NewReconnectWorker(n *Node, pollInterval time.Duration) *ReconnectWorker {
	if pollInterval <= 0 {
		pollInterval = DefaultReconnectPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ReconnectWorker{
		n:            n,
		log:          n.log.Component("reconnect"),
		pollInterval: pollInterval,
		pending:      make(map[string]*pendingReconnect),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the background retry loop.
func (w *ReconnectWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop ends the retry loop and waits for it to exit.
func (w *ReconnectWorker) Stop() {
	w.cancel()
	w.wg.Wait()
}

// Schedule registers addr for retried connection attempts if it isn't
// already connected or already pending. Each newly scheduled address gets
// a fresh attempt ID for log correlation.
func (w *ReconnectWorker) Schedule(addr Address) {
	if w.n.IsConnected(addr) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.pending[addr.String()]; exists {
		return
	}

	id := uuid.NewString()
	w.pending[addr.String()] = &pendingReconnect{addr: addr, attemptID: id, nextAttempt: time.Now()}
	w.log.Debug("scheduled reconnect", "peer", addr.String(), "attempt_id", id)
}

func (w *ReconnectWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.attemptDue()
		}
	}
}

func (w *ReconnectWorker) attemptDue() {
	now := time.Now()

	w.mu.Lock()
	due := make([]*pendingReconnect, 0, len(w.pending))
	for _, pr := range w.pending {
		if !pr.nextAttempt.After(now) {
			due = append(due, pr)
		}
	}
	w.mu.Unlock()

	for _, pr := range due {
		if w.n.IsConnected(pr.addr) {
			w.mu.Lock()
			delete(w.pending, pr.addr.String())
			w.mu.Unlock()
			continue
		}

		if err := w.n.ConnectToNode(pr.addr); err != nil {
			w.mu.Lock()
			pr.retryCount++
			pr.nextAttempt = now.Add(backoff(pr.retryCount))
			w.mu.Unlock()
			w.log.Debug("reconnect attempt failed", "peer", pr.addr.String(), "attempt_id", pr.attemptID, "retry_count", pr.retryCount, "error", err)
			continue
		}

		w.log.Info("reconnected", "peer", pr.addr.String(), "attempt_id", pr.attemptID)
		w.mu.Lock()
		delete(w.pending, pr.addr.String())
		w.mu.Unlock()
	}
}

// backoff mirrors the teacher's exponential schedule: doubling from a 10s
// base up to a 10-minute ceiling.
func backoff(retryCount int) time.Duration {
	const (
		base = 10 * time.Second
		max  = 10 * time.Minute
	)

	d := base
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d > max {
			return max
		}
	}
	return d
}
