package flate

// Stream is the cursor-driven handle shared by the inflate and deflate
// engines, the Go counterpart of zlib's z_stream: callers install remaining
// input in NextIn, remaining output room in NextOut, then repeatedly call
// Step, which consumes a prefix of NextIn and fills a prefix of NextOut,
// re-slicing both cursors forward as it goes. There is no allocation or
// copying of the caller's buffers; a Stream only ever appends to its own
// internal window.
type Stream struct {
	NextIn  []byte // unconsumed input
	TotalIn int64  // total bytes consumed across the stream's lifetime

	NextOut  []byte // unfilled output room
	TotalOut int64  // total bytes produced across the stream's lifetime

	Msg string // set to a human-readable reason on DataError/StreamError

	engine engine
}

// AvailIn reports how many unconsumed input bytes remain.
func (s *Stream) AvailIn() int { return len(s.NextIn) }

// AvailOut reports how much output room remains.
func (s *Stream) AvailOut() int { return len(s.NextOut) }

// engine is implemented by the inflate and deflate state machines; Step
// drives whichever one was installed by InitInflate/InitInflateDict/
// InitDeflate.
type engine interface {
	step(s *Stream, flush Flush) Code
	reset()
}

func (s *Stream) fail(c Code, msg string) Code {
	s.Msg = msg
	return c
}

// Step advances the stream by one unit of work, the meaning of which
// depends on flush (see the Flush constants): it consumes from NextIn and
// produces into NextOut, returning StreamOK if it can still make progress
// with more input or output room, StreamEnd once the logical end of the
// compressed data has been reached and fully drained, or a negative Code on
// error.
func (s *Stream) Step(flush Flush) Code {
	if s.engine == nil {
		return s.fail(StreamError, "stream not initialized")
	}
	return s.engine.step(s, flush)
}

// DataType reports whether the data written so far through a deflate
// Stream looks like text or binary, this package's counterpart of zlib's
// data_type field (the rule is the byte-count heuristic in
// compressor.dataType). It reports UnknownType for an inflate Stream or one
// nothing has been written to yet.
func (s *Stream) DataType() DataType {
	c, ok := s.engine.(*compressor)
	if !ok {
		return UnknownType
	}
	return c.dataType()
}

// MaxCompressedSize returns a worst-case upper bound on the number of
// bytes deflate can produce for n bytes of input, the same formula zlib's
// compressBound uses: the input size plus about 0.03% (n>>12 + n>>14 +
// n>>25) and 13 bytes of slack for block and Huffman-table overhead.
func MaxCompressedSize(n int) int {
	return n + n>>12 + n>>14 + n>>25 + 13
}

// Reset returns the engine to a fresh state so a Stream can be reused for a
// new logical stream. An inflate engine keeps its window buffer and re-primes
// it with its preset dictionary, if any. A deflate engine keeps its level and
// strategy but restarts with an empty history: its window is released, and a
// preset dictionary given to InitDeflateDict is not restored.
func (s *Stream) Reset() {
	s.Msg = ""
	if s.engine != nil {
		s.engine.reset()
	}
}

// consumeIn advances NextIn/TotalIn by n bytes.
func (s *Stream) consumeIn(n int) {
	s.NextIn = s.NextIn[n:]
	s.TotalIn += int64(n)
}

// produceOut copies p into NextOut, advancing NextOut/TotalOut, and reports
// how many bytes were copied (which may be less than len(p) if NextOut is
// short).
func (s *Stream) produceOut(p []byte) int {
	n := copy(s.NextOut, p)
	s.NextOut = s.NextOut[n:]
	s.TotalOut += int64(n)
	return n
}
