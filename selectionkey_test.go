package winselect

import "testing"

func openTestSelector(t *testing.T) *Selector {
	t.Helper()
	sel, err := Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = sel.Close() })
	return sel
}

func TestSelectionKeyInterestOpsRejectsInvalidBits(t *testing.T) {
	sel := openTestSelector(t)
	ch := newTestChannel(101, OpRead)
	key, err := sel.Register(ch, OpRead, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := key.SetInterestOps(OpWrite); err == nil {
		t.Fatalf("SetInterestOps(OpWrite) on a read-only channel should fail")
	}
	ops, err := key.InterestOps()
	if err != nil || ops != OpRead {
		t.Fatalf("InterestOps = (%v, %v), want (OpRead, nil)", ops, err)
	}
}

func TestSelectionKeyAttachment(t *testing.T) {
	sel := openTestSelector(t)
	ch := newTestChannel(102, OpRead)
	key, err := sel.Register(ch, OpRead, "first")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if got := key.Attachment(); got != "first" {
		t.Fatalf("Attachment() = %v, want %q", got, "first")
	}
	prev := key.Attach("second")
	if prev != "first" {
		t.Fatalf("Attach returned %v, want %q", prev, "first")
	}
	if got := key.Attachment(); got != "second" {
		t.Fatalf("Attachment() after Attach = %v, want %q", got, "second")
	}
}

func TestSelectionKeyCancelIsIdempotentAndRemovesFromKeys(t *testing.T) {
	sel := openTestSelector(t)
	ch := newTestChannel(103, OpRead)
	key, err := sel.Register(ch, OpRead, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	key.Cancel()
	key.Cancel() // must be a no-op the second time

	if key.IsValid() {
		t.Fatalf("key.IsValid() true after Cancel")
	}
	if _, err := key.InterestOps(); err != ErrCancelledKey {
		t.Fatalf("InterestOps after cancel = %v, want ErrCancelledKey", err)
	}

	if _, err := sel.SelectNow(); err != nil {
		t.Fatalf("SelectNow failed: %v", err)
	}

	if key.index != -1 {
		t.Fatalf("key.index = %d after drain, want -1", key.index)
	}
	for _, k := range sel.Keys() {
		if k == key {
			t.Fatalf("cancelled key still present in Keys()")
		}
	}
}

func TestSelectionKeyReadyBitHelpers(t *testing.T) {
	sel := openTestSelector(t)
	ch := newTestChannel(104, OpRead|OpWrite)
	key, err := sel.Register(ch, OpRead|OpWrite, nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	key.setReadyOps(OpRead)

	if readable, _ := key.IsReadable(); !readable {
		t.Fatalf("IsReadable() = false, want true")
	}
	if writable, _ := key.IsWritable(); writable {
		t.Fatalf("IsWritable() = true, want false")
	}
}
