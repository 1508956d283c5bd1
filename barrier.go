package winselect

import "sync"

// startBarrier is the rendezvous helpers wait at between rounds
// (spec.md §4.5 step 7, §5 "startLock"). The selector goroutine calls
// startThreads once per round to release every helper that is not
// zombie; each helper blocks in waitForStart until its round number
// advances or it is marked zombie.
type startBarrier struct {
	mu    sync.Mutex
	cond  *sync.Cond
	round uint64
}

func newStartBarrier() *startBarrier {
	b := &startBarrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// startThreads releases every helper waiting in waitForStart.
func (b *startBarrier) startThreads() {
	b.mu.Lock()
	b.round++
	b.cond.Broadcast()
	b.mu.Unlock()
}

// waitForStart blocks until the round advances past lastSeen or until
// isZombie reports true, whichever happens first. It returns the new
// round number and whether the helper should exit.
func (b *startBarrier) waitForStart(lastSeen uint64, isZombie func() bool) (round uint64, exit bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.round <= lastSeen {
		if isZombie() {
			return lastSeen, true
		}
		b.cond.Wait()
	}
	return b.round, isZombie()
}

// finishBarrier is the rendezvous the main sub-selector waits at after
// its own native poll returns, until every helper has reported back
// (spec.md §4.5 steps 6, 9; §7 "one such error... re-thrown from the
// main thread after all helpers complete").
type finishBarrier struct {
	mu        sync.Mutex
	cond      *sync.Cond
	remaining int
	err       error
}

func newFinishBarrier() *finishBarrier {
	b := &finishBarrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// reset prepares the barrier for a new round with n helpers expected to
// report in.
func (b *finishBarrier) reset(n int) {
	b.mu.Lock()
	b.remaining = n
	b.err = nil
	b.mu.Unlock()
}

// threadFinished records one helper's completion (and, if it is the
// first error observed this round, its error) and wakes waitForHelpers
// once every expected helper has reported in.
func (b *finishBarrier) threadFinished(helperErr error) {
	b.mu.Lock()
	if helperErr != nil && b.err == nil {
		b.err = helperErr
	}
	b.remaining--
	if b.remaining <= 0 {
		b.cond.Broadcast()
	}
	b.mu.Unlock()
}

// waitForHelpers blocks until every expected helper has reported in,
// then returns (and clears) the first captured error, if any.
func (b *finishBarrier) waitForHelpers() error {
	b.mu.Lock()
	for b.remaining > 0 {
		b.cond.Wait()
	}
	err := b.err
	b.err = nil
	b.mu.Unlock()
	return err
}
