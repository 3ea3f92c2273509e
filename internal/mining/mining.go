// Package mining implements the abortable, parallel proof-of-work nonce
// search described in §4.6: a fixed pool of workers each scan a disjoint
// nonce subrange of [0, 2^32) until one finds a hash satisfying the
// target difficulty or an external abort signal fires.
package mining

import (
	"context"
	"math"
	"sync"

	"github.com/paper-piper/Dini/internal/chain"
	"github.com/paper-piper/Dini/pkg/logging"
)

// DefaultWorkers is the number of parallel nonce-search workers a miner
// runs per candidate block.
const DefaultWorkers = 4

// bestHashLogInterval is how many nonce attempts a worker checks between
// DEBUG-level best-trailing-zero-count diagnostics.
const bestHashLogInterval = 200_000

// Engine searches for a valid nonce for a candidate block, distributing
// the uint32 nonce space across a fixed worker pool.
type Engine struct {
	workers int
	log     *logging.Logger
}

// New returns a mining engine with the given worker count. A non-positive
// count falls back to DefaultWorkers.
func New(workers int) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{workers: workers, log: logging.GetDefault().Component("mining")}
}

// Mine searches for a nonce that makes candidate's hash begin with
// difficulty hex zeros. It returns the mined block (a copy of candidate
// with Nonce and Hash set), or nil if ctx is cancelled before any worker
// succeeds — the caller's abort signal for cooperative preemption on a
// new-block arrival.
//
// Workers share no mutable state beyond the block fields they each own a
// private copy of; the first success wins and the others are torn down via
// ctx cancellation.
func (e *Engine) Mine(ctx context.Context, candidate *chain.Block, difficulty int) *chain.Block {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan result, 1)
	var wg sync.WaitGroup

	chunk := (uint64(math.MaxUint32) + 1) / uint64(e.workers)
	for w := 0; w < e.workers; w++ {
		start := uint64(w) * chunk
		end := start + chunk
		if w == e.workers-1 {
			end = uint64(math.MaxUint32) + 1
		}

		wg.Add(1)
		go func(workerID int, start, end uint64) {
			defer wg.Done()
			e.search(ctx, candidate, difficulty, workerID, start, end, resultCh)
		}(w, start, end)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	res, ok := <-resultCh
	if !ok {
		return nil
	}
	cancel() // trip the other workers as soon as we have a winner

	mined := *candidate
	mined.Nonce = res.nonce
	mined.Hash = res.hash
	return &mined
}

// search scans [start, end) of the nonce space, checking the abort signal
// every iteration, and publishes the first mined nonce it finds.
func (e *Engine) search(ctx context.Context, candidate *chain.Block, difficulty int, workerID int, start, end uint64, resultCh chan<- result) {
	local := *candidate
	best := 0

	for nonce := start; nonce < end; nonce++ {
		select {
		case <-ctx.Done():
			return
		default:
		}

		local.Nonce = nonce
		hash := local.CalculateHash()

		if n := leadingZeros(hash); n > best {
			best = n
		}
		if (nonce-start)%bestHashLogInterval == 0 {
			e.log.Debug("mining progress", "worker", workerID, "best_leading_zeros", best)
		}

		if chain.IsMined(hash, difficulty) {
			select {
			case resultCh <- result{nonce: nonce, hash: hash}:
			default:
			}
			return
		}
	}
}

type result struct {
	nonce uint64
	hash  string
}

func leadingZeros(hash string) int {
	n := 0
	for n < len(hash) && hash[n] == '0' {
		n++
	}
	return n
}
