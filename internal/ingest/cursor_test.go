package ingest

import "testing"

func TestCursorNextIncrementsFromZero(t *testing.T) {
	var c Cursor
	if got := c.Next(); got != 0 {
		t.Fatalf("expected the first position to be 0, got %d", got)
	}
	if got := c.Next(); got != 1 {
		t.Fatalf("expected the second position to be 1, got %d", got)
	}
}
