package winselect

import (
	"sync"
	"sync/atomic"
	"time"
)

// fdMapEntry is the per-registered-fd bookkeeping spec.md §4.2
// describes: the key itself plus the two round-scoped counters that let
// processFDSet dedup a single key across the read/write/except result
// arrays of one round without a second pass over the channel table.
type fdMapEntry struct {
	key          *SelectionKey
	updateCount  uint64
	clearedCount uint64
}

// helperThread is the selector's handle on one running helper
// goroutine: its sub-selector, and the zombie flag the selector sets to
// retire it at the next round boundary (spec.md §4.5 step 5, §5
// "helper thread pool resize").
type helperThread struct {
	sub    *subSelector
	zombie atomic.Bool
}

// Selector is the multiplexer: it owns a channel table, a mirrored poll
// array, and a pool of helper goroutines that fan the array out across
// MAX_SELECTABLE_FDS-sized slices, one poll syscall each, run
// concurrently and joined every round (spec.md §2, §4.5).
type Selector struct {
	opts   *selectorOptions
	maxFDs int

	// mu is the multiplexer's single "close lock": it is held across an
	// entire select round (register/deregister/grow are therefore
	// serialized against any in-flight round too). Holding it for the
	// whole round, rather than only around the table mutations the way
	// the original narrowly scopes its closeLock, is a deliberate
	// simplification recorded in DESIGN.md; it trades a small amount of
	// register/deregister latency for having no FD-reuse race window at
	// all between a deregister and the next round's poll.
	mu sync.Mutex

	channelArray  []*SelectionKey
	poll          *pollArray
	fdMap         map[int]*fdMapEntry
	totalChannels int // index of the next free slot; slot 0 is always the wakeup sentinel
	helperCount   int // target helper-pool size, updated at register/deregister time

	main    *subSelector
	helpers []*helperThread

	keysMu sync.Mutex
	keys   map[*SelectionKey]struct{}

	selectedMu sync.Mutex
	selected   map[*SelectionKey]struct{}

	cancelledMu sync.Mutex
	cancelled   map[*SelectionKey]struct{}

	startBarrier  *startBarrier
	finishBarrier *finishBarrier
	roundTimeout  atomic.Int64

	wakeup             *wakeupPipe
	interruptMu        sync.Mutex
	interruptTriggered bool
	wakeupSignalCount  atomic.Uint64 // counts actual signals, not deduped calls; see spec.md §8 Idempotence

	updateCount uint64
	closed      atomic.Bool
}

// Open constructs a Selector and its wakeup pipe. The caller owns the
// returned Selector and must Close it.
func Open(opts ...Option) (*Selector, error) {
	wakeup, err := newWakeupPipe()
	if err != nil {
		return nil, err
	}
	cfg := resolveOptions(opts)
	sel := &Selector{
		opts:          cfg,
		maxFDs:        cfg.maxSelectableFDs,
		channelArray:  make([]*SelectionKey, initCap),
		poll:          newPollArray(),
		fdMap:         make(map[int]*fdMapEntry),
		totalChannels: 1,
		keys:          make(map[*SelectionKey]struct{}),
		selected:      make(map[*SelectionKey]struct{}),
		cancelled:     make(map[*SelectionKey]struct{}),
		startBarrier:  newStartBarrier(),
		finishBarrier: newFinishBarrier(),
		wakeup:        wakeup,
	}
	sel.poll.addWakeupSocket(wakeup.fd(), 0)
	sel.main = newSubSelector(0, 0, sel.maxFDs)
	return sel, nil
}

// Register binds channel to this selector under the given initial
// interest ops, attaching attachment if it is non-nil, and returns its SelectionKey
// (spec.md §4.4).
func (sel *Selector) Register(channel ChannelOps, ops InterestOp, attachment any) (*SelectionKey, error) {
	if sel.closed.Load() {
		return nil, ErrClosedSelector
	}
	if ops&^channel.ValidOps() != 0 {
		return nil, ErrIllegalArgument
	}
	sel.mu.Lock()
	defer sel.mu.Unlock()
	if sel.closed.Load() {
		return nil, ErrClosedSelector
	}

	key := newSelectionKey(sel, channel, ops)
	idx := sel.growForInsert()
	key.index = idx
	sel.channelArray[idx] = key
	sel.poll.addEntry(idx, key)
	sel.poll.putEventOps(idx, channel.TranslateInterestOps(ops))
	sel.fdMap[channel.FD()] = &fdMapEntry{key: key}

	if attachment != nil {
		key.Attach(attachment)
	}
	sel.keysMu.Lock()
	sel.keys[key] = struct{}{}
	sel.keysMu.Unlock()
	return key, nil
}

// growForInsert grows the channel table and poll array if full, inserts
// a wakeup sentinel whenever totalChannels is about to land on a
// MAX_SELECTABLE_FDS boundary (raising helperCount for the helper that
// will own the new slice; adjustHelperPool starts it at the next round),
// and returns the index the next real channel should
// occupy. Caller must hold sel.mu.
func (sel *Selector) growForInsert() int {
	if sel.totalChannels >= len(sel.channelArray) {
		newCap := len(sel.channelArray) * 2
		grown := make([]*SelectionKey, newCap)
		copy(grown, sel.channelArray)
		sel.channelArray = grown
		sel.poll.grow(newCap)
	}
	if sel.totalChannels%sel.maxFDs == 0 {
		sentinelIdx := sel.totalChannels
		sel.poll.addWakeupSocket(sel.wakeup.fd(), sentinelIdx)
		sel.channelArray[sentinelIdx] = nil
		sel.totalChannels++
		if sel.totalChannels >= len(sel.channelArray) {
			newCap := len(sel.channelArray) * 2
			grown := make([]*SelectionKey, newCap)
			copy(grown, sel.channelArray)
			sel.channelArray = grown
			sel.poll.grow(newCap)
		}
		sel.helperCount++
		sel.opts.logger.Logf(LevelInfo, "winselect: helper slice opened at index %d", sentinelIdx)
	}
	idx := sel.totalChannels
	sel.totalChannels++
	return idx
}

// putEventOps pushes a key's translated native events into the poll
// array. Called by SelectionKey.SetInterestOps.
func (sel *Selector) putEventOps(key *SelectionKey, nativeEvents uint32) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	if key.index >= 0 {
		sel.poll.putEventOps(key.index, nativeEvents)
	}
}

// addCancelled records a cancelled key for the next round's drain
// phase. Called by SelectionKey.Cancel.
func (sel *Selector) addCancelled(key *SelectionKey) {
	sel.cancelledMu.Lock()
	sel.cancelled[key] = struct{}{}
	sel.cancelledMu.Unlock()
}

// implDereg removes one key from the channel table and poll array by
// swapping the last occupied slot into its place, shrinks the helper
// pool if the table just crossed back below a MAX_SELECTABLE_FDS
// boundary, and kills the channel if it reports itself already closed.
// Caller must hold sel.mu.
func (sel *Selector) implDereg(key *SelectionKey) {
	i := key.index
	if i < 0 {
		return
	}
	last := sel.totalChannels - 1
	if i != last {
		moved := sel.channelArray[last]
		sel.channelArray[i] = moved
		sel.poll.replaceEntry(last, i)
		if moved != nil {
			moved.index = i
		}
	}
	sel.channelArray[last] = nil
	sel.poll.clearEntry(last)
	sel.totalChannels--
	key.index = -1

	if sel.totalChannels > 1 && sel.totalChannels%sel.maxFDs == 1 {
		sentinelIdx := sel.totalChannels - 1
		sel.channelArray[sentinelIdx] = nil
		sel.poll.clearEntry(sentinelIdx)
		sel.totalChannels--
		sel.helperCount--
		sel.opts.logger.Logf(LevelInfo, "winselect: helper slice closed at index %d", sentinelIdx)
	}

	delete(sel.fdMap, key.channel.FD())
	sel.keysMu.Lock()
	delete(sel.keys, key)
	sel.keysMu.Unlock()
	sel.selectedMu.Lock()
	delete(sel.selected, key)
	sel.selectedMu.Unlock()

	if cr, ok := key.channel.(closedReporter); ok && cr.Closed() {
		if err := key.channel.Kill(); err != nil {
			sel.opts.logger.Logf(LevelWarn, "winselect: Kill on deregistered channel failed: %v", err)
		}
	}
}

// closedReporter is the optional capability a channel implements to let
// implDereg call Kill once its own user-visible close has already
// happened (spec.md §4.4 "deregister... invoke kill() if the channel is
// already closed").
type closedReporter interface {
	Closed() bool
}

func (sel *Selector) drainCancelled() {
	sel.cancelledMu.Lock()
	pending := sel.cancelled
	sel.cancelled = make(map[*SelectionKey]struct{})
	sel.cancelledMu.Unlock()
	for key := range pending {
		sel.implDereg(key)
	}
}

// sliceLen returns how many poll-array slots starting at start belong
// to this round, capped at maxFDs. Caller must hold sel.mu.
func (sel *Selector) sliceLen(start int) int {
	if start >= sel.totalChannels {
		return 0
	}
	n := sel.totalChannels - start
	if n > sel.maxFDs {
		n = sel.maxFDs
	}
	return n
}

// resetWakeupSocket drains the wakeup pipe and clears interruptTriggered
// if it was set, reporting whether it found the flag set. Used both as
// the pre-round short-circuit (spec.md §4.5 step 4) and the end-of-round
// reset (step 13).
func (sel *Selector) resetWakeupSocket() bool {
	sel.interruptMu.Lock()
	defer sel.interruptMu.Unlock()
	if !sel.interruptTriggered {
		return false
	}
	sel.interruptTriggered = false
	sel.wakeup.drain()
	return true
}

// Wakeup causes a blocked or future Select call to return immediately.
// Idempotent between rounds: a second call before the first is consumed
// is a no-op (spec.md §4.7).
func (sel *Selector) Wakeup() *Selector {
	sel.interruptMu.Lock()
	if !sel.interruptTriggered {
		sel.interruptTriggered = true
		sel.wakeup.signal()
		sel.wakeupSignalCount.Add(1)
	}
	sel.interruptMu.Unlock()
	return sel
}

// Select blocks until at least one registered channel is ready, the
// selector is woken, or an error occurs.
func (sel *Selector) Select() (int, error) { return sel.doSelect(-1) }

// SelectTimeout blocks for at most timeoutMs milliseconds. Per
// java.nio.channels.Selector's own convention (not an oversight),
// timeoutMs == 0 behaves exactly like the no-arg Select and blocks
// indefinitely; pass a positive value for a bounded wait, or use
// SelectNow for a non-blocking poll.
func (sel *Selector) SelectTimeout(timeoutMs int) (int, error) {
	if timeoutMs < 0 {
		return 0, ErrIllegalArgument
	}
	if timeoutMs == 0 {
		return sel.doSelect(-1)
	}
	return sel.doSelect(timeoutMs)
}

// SelectNow performs one non-blocking poll and returns immediately.
func (sel *Selector) SelectNow() (int, error) { return sel.doSelect(0) }

// doSelect runs one or more rounds of spec.md §4.5: drain cancelled
// keys, short-circuit on a pending wakeup, resize the helper pool,
// release helpers, poll this goroutine's own (main) slice, join the
// helpers, drain cancelled keys again, and fold every slice's results
// into selectedKeys. A round that comes back with nothing ready, no
// error, and no genuine Wakeup is a spurious interrupt (native poll's
// EINTR); it is retried with the remaining time on the clock injected
// via WithPollTimeoutClock, rather than handed back to the caller as an
// early, silent zero. When helper slices exist, whichever sub-selector's
// poll returns first wakes the others through the wakeup pipe, so such a
// round always ends as a woken round and is returned, not retried.
func (sel *Selector) doSelect(timeoutMs int) (int, error) {
	if sel.closed.Load() {
		return 0, ErrClosedSelector
	}
	sel.mu.Lock()
	defer sel.mu.Unlock()
	if sel.closed.Load() {
		return 0, ErrClosedSelector
	}

	sel.drainCancelled()
	if sel.resetWakeupSocket() {
		return 0, nil
	}

	sel.adjustHelperPool()

	var deadline time.Time
	bounded := timeoutMs > 0
	if bounded {
		deadline = sel.opts.now().Add(time.Duration(timeoutMs) * time.Millisecond)
	}

	for {
		sel.finishBarrier.reset(len(sel.helpers))
		sel.roundTimeout.Store(int64(timeoutMs))
		sel.startBarrier.startThreads()

		mainErr := sel.main.poll(sel, timeoutMs)

		var helpersErr error
		if len(sel.helpers) > 0 {
			sel.Wakeup() // unblock helpers still polling their slices
			helpersErr = sel.finishBarrier.waitForHelpers()
		}

		sel.drainCancelled()
		n := sel.main.processSelectedKeys(sel, sel.nextUpdateCount())
		for _, h := range sel.helpers {
			n += h.sub.processSelectedKeys(sel, sel.updateCount)
		}
		woken := sel.resetWakeupSocket()

		if n > 0 || woken || mainErr != nil || helpersErr != nil || timeoutMs == 0 {
			if mainErr != nil {
				sel.opts.logger.Logf(LevelError, "%v", mainErr)
				return n, mainErr
			}
			if helpersErr != nil {
				sel.opts.logger.Logf(LevelError, "%v", helpersErr)
			}
			return n, helpersErr
		}
		if !bounded {
			continue // infinite wait: a spurious zero result always retries
		}
		remaining := deadline.Sub(sel.opts.now())
		if remaining <= 0 {
			return n, nil
		}
		timeoutMs = int(remaining / time.Millisecond)
		if timeoutMs == 0 {
			timeoutMs = 1
		}
	}
}

func (sel *Selector) nextUpdateCount() uint64 {
	sel.updateCount++
	return sel.updateCount
}

// adjustHelperPool spawns or retires helper goroutines so their count
// matches how many MAX_SELECTABLE_FDS-sized slices beyond the main one
// currently exist. Caller must hold sel.mu.
func (sel *Selector) adjustHelperPool() {
	want := sel.helperCount
	for len(sel.helpers) < want {
		id := len(sel.helpers) + 1
		h := &helperThread{sub: newSubSelector(id, id*sel.maxFDs, sel.maxFDs)}
		sel.helpers = append(sel.helpers, h)
		go sel.runHelper(h)
	}
	for len(sel.helpers) > want {
		last := len(sel.helpers) - 1
		sel.helpers[last].zombie.Store(true)
		sel.helpers = sel.helpers[:last]
	}
}

func (sel *Selector) runHelper(h *helperThread) {
	var lastRound uint64
	for {
		round, exit := sel.startBarrier.waitForStart(lastRound, h.zombie.Load)
		if exit {
			return
		}
		lastRound = round
		err := h.sub.poll(sel, int(sel.roundTimeout.Load()))
		sel.Wakeup() // unblock the main sub-selector and the other helpers
		sel.finishBarrier.threadFinished(err)
	}
}

// processFDSet folds one result array (read, write, or except) into
// selectedKeys, applying the set-vs-update and updateCount/clearedCount
// dedup rule of spec.md §4.6, and discarding a TCP socket's spurious
// exceptFds hit when it turns out to be OOB data rather than a real
// error condition. Caller must hold sel.mu.
func (sel *Selector) processFDSet(updateCount uint64, fds []int32, readyBits uint32, isExceptFds bool) int {
	count := int(fds[0])
	wakeupFD := int32(sel.wakeup.fd())
	n := 0
	for i := 1; i <= count; i++ {
		fd := fds[i]
		if fd == wakeupFD {
			sel.interruptMu.Lock()
			sel.interruptTriggered = true
			sel.interruptMu.Unlock()
			continue
		}
		entry, ok := sel.fdMap[int(fd)]
		if !ok {
			continue
		}
		key := entry.key
		if isExceptFds && key.channel.SocketKind() == SocketKindTCP && discardUrgentData(int(fd)) {
			continue
		}

		sel.selectedMu.Lock()
		_, inSelected := sel.selected[key]
		sel.selectedMu.Unlock()

		if inSelected {
			var changed bool
			if entry.clearedCount != updateCount {
				changed = key.channel.TranslateAndSetReadyOps(readyBits, key)
			} else {
				changed = key.channel.TranslateAndUpdateReadyOps(readyBits, key)
			}
			if changed && entry.updateCount != updateCount {
				entry.updateCount = updateCount
				n++
			}
		} else {
			if entry.clearedCount != updateCount {
				key.channel.TranslateAndSetReadyOps(readyBits, key)
			} else {
				key.channel.TranslateAndUpdateReadyOps(readyBits, key)
			}
			ready, _ := key.ReadyOps()
			interest, _ := key.InterestOps()
			if ready&interest != 0 {
				sel.selectedMu.Lock()
				sel.selected[key] = struct{}{}
				sel.selectedMu.Unlock()
				entry.updateCount = updateCount
				n++
			}
		}
		entry.clearedCount = updateCount
	}
	return n
}

// Deregister removes key from this selector outside of a select round,
// for an application that wants the slot reclaimed without waiting for
// the next round's cancelled-key drain. It does not mark the key invalid.
func (sel *Selector) Deregister(key *SelectionKey) {
	sel.mu.Lock()
	defer sel.mu.Unlock()
	sel.implDereg(key)
}

// Keys returns a snapshot of every key currently registered with this
// selector.
func (sel *Selector) Keys() []*SelectionKey {
	sel.keysMu.Lock()
	defer sel.keysMu.Unlock()
	out := make([]*SelectionKey, 0, len(sel.keys))
	for k := range sel.keys {
		out = append(out, k)
	}
	return out
}

// SelectedKeys returns a snapshot of the keys found ready by the most
// recent completed round, and removes them from the selector's
// selected-keys set (mirroring the usual select-loop idiom of draining
// selectedKeys after each round).
func (sel *Selector) SelectedKeys() []*SelectionKey {
	sel.selectedMu.Lock()
	defer sel.selectedMu.Unlock()
	out := make([]*SelectionKey, 0, len(sel.selected))
	for k := range sel.selected {
		out = append(out, k)
	}
	sel.selected = make(map[*SelectionKey]struct{})
	return out
}

// Close invalidates and deregisters every remaining key (calling Kill on
// channels that report themselves closed), retires every helper
// goroutine, and closes the wakeup pipe. Idempotent.
func (sel *Selector) Close() error {
	if !sel.closed.CompareAndSwap(false, true) {
		return nil
	}
	sel.mu.Lock()
	defer sel.mu.Unlock()

	remaining := make([]*SelectionKey, 0, len(sel.keys))
	sel.keysMu.Lock()
	for k := range sel.keys {
		remaining = append(remaining, k)
	}
	sel.keysMu.Unlock()
	for _, k := range remaining {
		k.valid.Store(false)
		sel.implDereg(k)
	}

	for _, h := range sel.helpers {
		h.zombie.Store(true)
	}
	sel.helpers = nil
	sel.startBarrier.startThreads()

	sel.interruptMu.Lock()
	sel.interruptTriggered = true
	sel.interruptMu.Unlock()
	sel.wakeup.close()

	sel.poll.free()
	sel.channelArray = nil
	sel.fdMap = nil
	return nil
}
