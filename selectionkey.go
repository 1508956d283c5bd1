package winselect

import "sync/atomic"

// SelectionKey is the token binding one channel to one Selector. A key
// is owned by exactly one Selector while valid (spec.md §3).
type SelectionKey struct {
	channel  ChannelOps
	selector *Selector

	interestOps atomic.Uint32
	readyOps    atomic.Uint32
	valid       atomic.Bool

	attachment atomic.Pointer[any]

	// index is the key's position in the selector's channel table and
	// poll array, or -1 once deregistered. Mutated only by the owning
	// Selector under its close lock (register/deregister/grow).
	index int
}

func newSelectionKey(selector *Selector, channel ChannelOps, ops InterestOp) *SelectionKey {
	k := &SelectionKey{channel: channel, selector: selector, index: -1}
	k.valid.Store(true)
	k.interestOps.Store(uint32(ops))
	return k
}

// Channel returns the channel this key represents. Valid even after
// cancellation.
func (k *SelectionKey) Channel() ChannelOps { return k.channel }

// Selector returns the selector that owns this key. Valid even after
// cancellation.
func (k *SelectionKey) Selector() *Selector { return k.selector }

// IsValid reports whether the key has been neither cancelled nor
// invalidated by closing its selector. Closing the key's channel does not
// by itself make the key invalid.
func (k *SelectionKey) IsValid() bool { return k.valid.Load() }

// InterestOps returns the current interest bitset.
func (k *SelectionKey) InterestOps() (InterestOp, error) {
	if !k.valid.Load() {
		return 0, ErrCancelledKey
	}
	return InterestOp(k.interestOps.Load()), nil
}

// SetInterestOps validates ops against the channel's ValidOps, stores
// the new bitset, and pushes the translated native events into the
// selector's poll array so they take effect no later than the next
// round (spec.md §4.3, §5 "Ordering guarantees").
func (k *SelectionKey) SetInterestOps(ops InterestOp) error {
	if !k.valid.Load() {
		return ErrCancelledKey
	}
	if ops&^k.channel.ValidOps() != 0 {
		return ErrIllegalArgument
	}
	k.interestOps.Store(uint32(ops))
	k.selector.putEventOps(k, k.channel.TranslateInterestOps(ops))
	return nil
}

// ReadyOps returns the ready bitset as of the most recent completed
// select round. Written only by the Selector.
func (k *SelectionKey) ReadyOps() (InterestOp, error) {
	if !k.valid.Load() {
		return 0, ErrCancelledKey
	}
	return InterestOp(k.readyOps.Load()), nil
}

func (k *SelectionKey) setReadyOps(ops InterestOp) { k.readyOps.Store(uint32(ops)) }
func (k *SelectionKey) orReadyOps(ops InterestOp) bool {
	for {
		old := k.readyOps.Load()
		next := old | uint32(ops)
		if next == old {
			return false
		}
		if k.readyOps.CompareAndSwap(old, next) {
			return true
		}
	}
}

// IsReadable, IsWritable, IsConnectable, and IsAcceptable are bit-tests
// over ReadyOps, returning ErrCancelledKey if the key is invalid.
func (k *SelectionKey) IsReadable() (bool, error)    { return k.readyBit(OpRead) }
func (k *SelectionKey) IsWritable() (bool, error)    { return k.readyBit(OpWrite) }
func (k *SelectionKey) IsConnectable() (bool, error) { return k.readyBit(OpConnect) }
func (k *SelectionKey) IsAcceptable() (bool, error)  { return k.readyBit(OpAccept) }

func (k *SelectionKey) readyBit(op InterestOp) (bool, error) {
	ready, err := k.ReadyOps()
	if err != nil {
		return false, err
	}
	return ready&op != 0, nil
}

// Cancel is idempotent: it adds this key to the owning selector's
// cancelled set and flips valid false. The key remains in the channel
// table, poll array, and keys set until the next select round's
// deregister-cancelled-keys phase runs.
func (k *SelectionKey) Cancel() {
	if !k.valid.CompareAndSwap(true, false) {
		return
	}
	k.selector.addCancelled(k)
}

// Attach atomically swaps the key's opaque attachment, returning the
// prior value (nil if none). Valid even after cancellation.
func (k *SelectionKey) Attach(obj any) any {
	var prev any
	if p := k.attachment.Swap(&obj); p != nil {
		prev = *p
	}
	return prev
}

// Attachment returns the current attachment, or nil. Valid even after
// cancellation.
func (k *SelectionKey) Attachment() any {
	if p := k.attachment.Load(); p != nil {
		return *p
	}
	return nil
}
