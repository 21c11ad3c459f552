package flate

// dictDecoder is the sliding window of the Step-driven inflate state
// machine (the encoder and InflateBack keep their own windows): a single
// ring buffer of fixed size that also works as a staging area for output
// waiting to be drained to the caller.
//
// Invariant: 0 <= rdPos <= wrPos <= len(hist) <= size.
type dictDecoder struct {
	size int
	hist []byte

	wrPos int
	rdPos int
	full  bool
}

// init resets dd to a window of the given size, optionally primed with a
// preset dictionary (only the tail of which is kept, if it is longer than
// size, per RFC 1950 §2.4's "last size bytes" semantics).
func (dd *dictDecoder) init(size int, dict []byte) {
	*dd = dictDecoder{hist: dd.hist}
	dd.size = size
	if len(dd.hist) < size {
		dd.hist = make([]byte, size)
	}
	dd.hist = dd.hist[:size]

	if len(dict) > len(dd.hist) {
		dict = dict[len(dict)-len(dd.hist):]
	}
	dd.wrPos = copy(dd.hist, dict)
	if dd.wrPos == len(dd.hist) {
		dd.wrPos = 0
		dd.full = true
	}
	dd.rdPos = dd.wrPos
}

// histSize reports how many bytes of history are available for a back-reference.
func (dd *dictDecoder) histSize() int {
	if dd.full {
		return dd.size
	}
	return dd.wrPos
}

// flushSize reports how many written-but-undrained bytes are pending.
func (dd *dictDecoder) flushSize() int { return dd.wrPos - dd.rdPos }

// availSize reports remaining room before the window wraps.
func (dd *dictDecoder) availSize() int { return len(dd.hist) - dd.wrPos }

// writeSlice exposes the available tail of the window for a caller (the
// inflate stored-block or literal path) to write directly into.
func (dd *dictDecoder) writeSlice() []byte { return dd.hist[dd.wrPos:] }

// writeMark advances the write cursor after a direct writeSlice write.
func (dd *dictDecoder) writeMark(n int) { dd.wrPos += n }

// writeByte appends a single literal byte; the caller must have checked
// availSize() > 0 first (true whenever the window hasn't just wrapped).
func (dd *dictDecoder) writeByte(b byte) {
	dd.hist[dd.wrPos] = b
	dd.wrPos++
}

// writeCopy replays a back-reference of the given distance and length,
// returning how many bytes were actually copied: it stops early at the end
// of the window so the caller can drain and resume the rest of the match.
func (dd *dictDecoder) writeCopy(dist, length int) int {
	wrBase := dd.wrPos
	wrEnd := dd.wrPos + length
	if wrEnd > len(dd.hist) {
		wrEnd = len(dd.hist)
	}

	rdPos := dd.wrPos - dist
	if rdPos < 0 {
		rdPos += len(dd.hist)
		dd.wrPos += copy(dd.hist[dd.wrPos:wrEnd], dd.hist[rdPos:])
		rdPos = 0
	}
	for dd.wrPos < wrEnd {
		dd.wrPos += copy(dd.hist[dd.wrPos:wrEnd], dd.hist[rdPos:dd.wrPos])
	}
	return dd.wrPos - wrBase
}

// readFlush returns the bytes written since the last readFlush, wrapping the
// write cursor back to zero once the window has filled.
func (dd *dictDecoder) readFlush() []byte {
	toRead := dd.hist[dd.rdPos:dd.wrPos]
	dd.rdPos = dd.wrPos
	if dd.wrPos == len(dd.hist) {
		dd.wrPos, dd.rdPos = 0, 0
		dd.full = true
	}
	return toRead
}
