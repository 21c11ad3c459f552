// Package bitio implements the little-endian bit accumulator shared by the
// DEFLATE inflate and deflate engines: bit 0 of a stream is the low bit of
// its first byte, and when N bits are pulled they are read LSB-first across
// byte boundaries, as RFC 1951 requires.
package bitio

// Reader holds a bit accumulator that is refilled one byte at a time from a
// caller-owned source. It does not own any buffer itself; callers drive it
// with PullByte, typically from a cursor into their own input slice, so that
// a stream's private state can embed a Reader and suspend/resume across
// calls without copying.
type Reader struct {
	Hold  uint64 // bit accumulator; bit 0 is the next bit to be consumed
	Count uint   // number of valid bits currently in Hold
}

// PullByte folds one more byte into the top of the accumulator.
func (r *Reader) PullByte(b byte) {
	r.Hold |= uint64(b) << r.Count
	r.Count += 8
}

// Need reports whether at least n bits are currently available; the caller
// must PullByte (from its input cursor or an input callback) and retry when
// it returns false, suspending the state machine until more input arrives.
func (r *Reader) Need(n uint) bool {
	return r.Count >= n
}

// Peek returns the low n bits of the accumulator without consuming them.
// The caller must have verified Need(n) first.
func (r *Reader) Peek(n uint) uint32 {
	return uint32(r.Hold) & (1<<n - 1)
}

// Drop consumes the low n bits of the accumulator.
func (r *Reader) Drop(n uint) {
	r.Hold >>= n
	r.Count -= n
}

// Bits consumes and returns the low n bits; equivalent to Peek then Drop.
func (r *Reader) Bits(n uint) uint32 {
	v := r.Peek(n)
	r.Drop(n)
	return v
}

// ByteAlign discards the partial byte at the bottom of the accumulator,
// aligning consumption to the next byte boundary (DEFLATE's BYTEBITS).
func (r *Reader) ByteAlign() {
	r.Drop(r.Count & 7)
}

// Reset clears the accumulator, e.g. before reading a stored block's length
// field which must start on a fresh byte.
func (r *Reader) Reset() {
	r.Hold = 0
	r.Count = 0
}
