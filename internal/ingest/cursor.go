package ingest

// Cursor is the shared, monotonically increasing position counter threaded
// through both plain-text tokenization and math expression assignment
// within one document (spec.md sec 9 open question, SUPPLEMENTED FEATURES
// item 3: "cur_position synchronization"). Nothing reads math positions by
// this index today; it is kept for future phrase-search compatibility
// rather than removed.
type Cursor struct {
	pos uint32
}

// Next returns the next position and advances the cursor.
func (c *Cursor) Next() uint32 {
	p := c.pos
	c.pos++
	return p
}
