package mathindex

import "testing"

func TestNilReaderIteratorIsExhausted(t *testing.T) {
	it := NewIterator(nil, 2.5)
	if it.Cur() != exhaustedKey {
		t.Fatalf("expected a nil-reader iterator to report exhausted immediately")
	}
	if it.UpperBound() != 2.5 {
		t.Fatalf("expected UpperBound to be preserved even when exhausted")
	}
	if err := it.AdvanceTo(100); err != nil {
		t.Fatalf("AdvanceTo on an exhausted iterator should not error: %v", err)
	}
	if it.Cur() != exhaustedKey {
		t.Fatalf("expected iterator to remain exhausted after AdvanceTo")
	}
}
