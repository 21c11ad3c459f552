package flate

import "github.com/neacsum/zlib/internal/bitio"

// blockTokenLimit bounds how many tokens accumulate before a block is
// closed off on its own, purely to keep any one block's Huffman tables from
// growing unboundedly large on inputs with very long matches.
const blockTokenLimit = 1 << 14

// InitDeflate installs a fresh deflate encoder engine on s at the given
// level and strategy.
func (s *Stream) InitDeflate(level Level, strategy Strategy) Code {
	if level != DefaultCompression && (level < 0 || level > 9) {
		return s.fail(StreamError, "invalid compression level")
	}
	s.engine = newCompressor(level, strategy, nil)
	log.Debugf("flate: deflate stream opened, level=%d strategy=%d", level, strategy)
	return StreamOK
}

// InitDeflateDict is like InitDeflate but primes the match finder with a
// preset dictionary, which the matching inflate side must also install via
// InitInflateDict for back-references into it to resolve.
func (s *Stream) InitDeflateDict(level Level, strategy Strategy, dict []byte) Code {
	if level != DefaultCompression && (level < 0 || level > 9) {
		return s.fail(StreamError, "invalid compression level")
	}
	s.engine = newCompressor(level, strategy, dict)
	log.Debugf("flate: deflate stream opened, level=%d strategy=%d dict=%d bytes", level, strategy, len(dict))
	return StreamOK
}

func (c *compressor) step(s *Stream, flush Flush) Code {
	if len(s.NextIn) > 0 {
		c.write(s.NextIn)
		s.consumeIn(len(s.NextIn))
	}

	if !c.drainPending(s) {
		return StreamOK
	}

	lookahead := minMatchLength - 1
	if flush == Finish || flush == SyncFlush || flush == FullFlush {
		lookahead = 0
	}
	upto := c.windowEnd - lookahead
	if upto < c.pos {
		upto = c.pos
	}
	if upto > c.pos {
		c.lazyMatch(upto)
	}

	switch flush {
	case Finish:
		if !c.wroteEnd {
			c.flushBlock(true)
			c.wroteEnd = true
		}
		if !c.drainPending(s) {
			return StreamOK
		}
		return StreamEnd

	case SyncFlush, FullFlush:
		if len(c.tokens) > 0 || c.bw.Count != 0 {
			c.flushBlock(false)
			c.emitSyncMarker()
		}
		if flush == FullFlush {
			for i := range c.head {
				c.head[i] = -1
			}
		}
		if !c.drainPending(s) {
			return StreamOK
		}
		return StreamOK

	case Block, Trees:
		if len(c.tokens) > 0 {
			c.flushBlock(false)
		}
		if !c.drainPending(s) {
			return StreamOK
		}
		return StreamOK

	default: // NoFlush, PartialFlush
		if len(c.tokens) >= blockTokenLimit {
			c.flushBlock(false)
		}
		if !c.drainPending(s) {
			return StreamOK
		}
		return StreamOK
	}
}

// drainPending copies any bits already written to c.bw.Pending out to
// s.NextOut, reporting whether everything pending has been drained.
func (c *compressor) drainPending(s *Stream) bool {
	for len(c.bw.Pending) > 0 {
		if len(s.NextOut) == 0 {
			return false
		}
		n := c.bw.Drain(s.NextOut)
		s.NextOut = s.NextOut[n:]
		s.TotalOut += int64(n)
	}
	return true
}

// emitSyncMarker appends the empty stored block (00 00 00 FF FF, after
// byte-alignment) that RFC 1951 uses as a flush point an inflater can
// resynchronize on.
func (c *compressor) emitSyncMarker() {
	c.bw.WriteBits(0, 3)
	c.bw.AlignByte()
	c.bw.WriteBytes([]byte{0, 0, 0xff, 0xff})
}

// maxStoredBlockLen is the largest payload a single stored block can carry:
// RFC 1951 §3.2.4's LEN field is 16 bits.
const maxStoredBlockLen = 65535

// flushBlock emits everything buffered in c.tokens as one DEFLATE block
// (never split, even when more than blockTokenLimit tokens have built up),
// picking whichever of stored, fixed-Huffman or dynamic-Huffman
// encodes it in the fewest bits, with final marking the very last block of
// the stream.
func (c *compressor) flushBlock(final bool) {
	toks := c.tokens
	c.tokens = nil
	blockStart := c.blockStart
	c.blockStart = c.pos
	if len(toks) == 0 && !final {
		return
	}

	litFreq := make([]int, 286)
	distFreq := make([]int, 30)
	litFreq[256] = 1 // end-of-block always occurs exactly once
	for _, t := range toks {
		if t.isLiteral() {
			litFreq[t.literal()]++
			continue
		}
		sym, _, _ := lengthCode(t.length())
		litFreq[sym]++
		dsym, _, _ := distCode(t.distance())
		distFreq[dsym]++
	}

	fixedCost := 3 + tokenCost(fixedLitLengths, fixedDistLengths, toks)

	var dynLitLens, dynDistLens []int
	var maxLit, maxDist int
	dynCost := int64(-1)
	if c.strategy != Fixed {
		dynLitLens, maxLit = buildTree(litFreq)
		dynDistLens, maxDist = buildTree(distFreq)
		dynCost = 3 + dynamicHeaderBits(dynLitLens, dynDistLens) + tokenCost(dynLitLens, dynDistLens, toks)
	}

	storedLen := c.pos - blockStart
	storedCost := int64(-1)
	if blockStart >= 0 && storedLen <= maxStoredBlockLen {
		storedCost = c.storedBlockCost(storedLen)
	}

	useStored := storedCost >= 0 && storedCost <= fixedCost && (dynCost < 0 || storedCost <= dynCost)
	useFixed := !useStored && (dynCost < 0 || fixedCost <= dynCost)

	switch {
	case useStored:
		c.bw.WriteBits(boolBit(final), 1)
		c.bw.WriteBits(0, 2)
		c.bw.AlignByte()
		c.bw.WriteBits(uint32(storedLen), 16)
		c.bw.WriteBits(uint32(^uint16(storedLen)), 16)
		c.bw.WriteBytes(c.window[blockStart : blockStart+storedLen])

	case useFixed:
		c.bw.WriteBits(boolBit(final), 1)
		c.bw.WriteBits(1, 2)
		c.emitBlockBody(fixedLitCodes, fixedLitLengths, fixedDistCodes, fixedDistLengths, toks)

	default:
		litCodes := assignCodes(dynLitLens, maxLit)
		distCodes := assignCodes(dynDistLens, maxDist)
		c.bw.WriteBits(boolBit(final), 1)
		c.bw.WriteBits(2, 2)
		c.writeDynamicHeader(dynLitLens, dynDistLens)
		c.emitBlockBody(litCodes, dynLitLens, distCodes, dynDistLens, toks)
	}

	if final {
		c.bw.Flush()
	}
}

// storedBlockCost reports the bit cost of emitting payloadLen bytes as a
// stored block from the writer's current bit position, including the
// shared 1-bit final marker and 2-bit type selector every block spends.
func (c *compressor) storedBlockCost(payloadLen int) int64 {
	afterType := (c.bw.Count + 3) % 8
	pad := (8 - afterType) % 8
	return 3 + int64(pad) + 32 + int64(payloadLen)*8
}

// tokenCost sums the bit cost of encoding toks, plus the terminating
// end-of-block symbol, under the given literal/length and distance code
// lengths.
func tokenCost(litLens, distLens []int, toks []token) int64 {
	var bits int64
	for _, t := range toks {
		if t.isLiteral() {
			bits += int64(litLens[t.literal()])
			continue
		}
		sym, _, extraBits := lengthCode(t.length())
		bits += int64(litLens[sym]) + int64(extraBits)
		dsym, _, dextraBits := distCode(t.distance())
		bits += int64(distLens[dsym]) + int64(dextraBits)
	}
	bits += int64(litLens[256])
	return bits
}

// dynamicHeaderBits reports the bit cost writeDynamicHeader would spend on
// litLens/distLens's HLIT/HDIST/HCLEN counts and code-length alphabet,
// without emitting anything, so flushBlock can weigh it against the other
// two encodings before committing to one.
func dynamicHeaderBits(litLens, distLens []int) int64 {
	hlit := len(litLens)
	for hlit > 257 && litLens[hlit-1] == 0 {
		hlit--
	}
	hdist := len(distLens)
	for hdist > 1 && distLens[hdist-1] == 0 {
		hdist--
	}

	combined := make([]int, 0, hlit+hdist)
	combined = append(combined, litLens[:hlit]...)
	combined = append(combined, distLens[:hdist]...)

	syms, _ := runLengthEncodeLens(combined)

	clFreq := make([]int, 19)
	for _, s := range syms {
		clFreq[s]++
	}
	clLens, _ := buildTreeLimit(clFreq, 7)

	hclen := 19
	for hclen > 4 && clLens[codeOrder[hclen-1]] == 0 {
		hclen--
	}

	bits := int64(5 + 5 + 4 + hclen*3)
	for _, s := range syms {
		bits += int64(clLens[s])
		switch s {
		case 16:
			bits += 2
		case 17:
			bits += 3
		case 18:
			bits += 7
		}
	}
	return bits
}

// emitBlockBody writes toks's literal/match codes, followed by the
// end-of-block symbol, under the given canonical codes/lengths; shared by
// the fixed and dynamic Huffman paths.
func (c *compressor) emitBlockBody(litCodes, litLens, distCodes, distLens []int, toks []token) {
	for _, t := range toks {
		if t.isLiteral() {
			emitCode(&c.bw, litCodes[t.literal()], litLens[t.literal()])
			continue
		}
		sym, extra, extraBits := lengthCode(t.length())
		emitCode(&c.bw, litCodes[sym], litLens[sym])
		if extraBits > 0 {
			c.bw.WriteBits(uint32(extra), extraBits)
		}
		dsym, dextra, dextraBits := distCode(t.distance())
		emitCode(&c.bw, distCodes[dsym], distLens[dsym])
		if dextraBits > 0 {
			c.bw.WriteBits(uint32(dextra), dextraBits)
		}
	}
	emitCode(&c.bw, litCodes[256], litLens[256])
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// emitCode writes an n-bit canonical Huffman code, which assignCodes has
// already bit-reversed into transmission (LSB-first) order.
func emitCode(w *bitio.Writer, code, n int) {
	w.WriteBits(uint32(code), uint(n))
}

// writeDynamicHeader emits the HLIT/HDIST/HCLEN counts, the code-length
// alphabet's own 3-bit-per-symbol lengths (in RFC 1951's permuted order,
// trimmed of trailing zeros), and the run-length-coded literal/length and
// distance code lengths, per RFC 1951 §3.2.7.
func (c *compressor) writeDynamicHeader(litLens, distLens []int) {
	hlit := len(litLens)
	for hlit > 257 && litLens[hlit-1] == 0 {
		hlit--
	}
	hdist := len(distLens)
	for hdist > 1 && distLens[hdist-1] == 0 {
		hdist--
	}

	combined := make([]int, 0, hlit+hdist)
	combined = append(combined, litLens[:hlit]...)
	combined = append(combined, distLens[:hdist]...)

	syms, extras := runLengthEncodeLens(combined)

	clFreq := make([]int, 19)
	for _, s := range syms {
		clFreq[s]++
	}
	clLens, clMax := buildTreeLimit(clFreq, 7)
	clCodes := assignCodes(clLens, clMax)

	hclen := 19
	for hclen > 4 && clLens[codeOrder[hclen-1]] == 0 {
		hclen--
	}

	c.bw.WriteBits(uint32(hlit-257), 5)
	c.bw.WriteBits(uint32(hdist-1), 5)
	c.bw.WriteBits(uint32(hclen-4), 4)
	for i := 0; i < hclen; i++ {
		c.bw.WriteBits(uint32(clLens[codeOrder[i]]), 3)
	}
	for i, s := range syms {
		emitCode(&c.bw, clCodes[s], clLens[s])
		switch s {
		case 16:
			c.bw.WriteBits(uint32(extras[i]), 2)
		case 17:
			c.bw.WriteBits(uint32(extras[i]), 3)
		case 18:
			c.bw.WriteBits(uint32(extras[i]), 7)
		}
	}
}

// runLengthEncodeLens turns a sequence of code lengths into the RFC 1951
// §3.2.7 meta-alphabet: literal lengths 0-15, "repeat previous 3-6 times"
// (16), "repeat zero 3-10 times" (17), and "repeat zero 11-138 times" (18).
func runLengthEncodeLens(lens []int) (syms, extras []int) {
	i := 0
	for i < len(lens) {
		v := lens[i]
		run := 1
		for i+run < len(lens) && lens[i+run] == v {
			run++
		}

		if v == 0 {
			for run > 0 {
				switch {
				case run < 3:
					syms = append(syms, 0)
					extras = append(extras, 0)
					run--
				case run <= 10:
					syms = append(syms, 17)
					extras = append(extras, run-3)
					run = 0
				default:
					n := run
					if n > 138 {
						n = 138
					}
					syms = append(syms, 18)
					extras = append(extras, n-11)
					run -= n
				}
			}
		} else {
			syms = append(syms, v)
			extras = append(extras, 0)
			run--
			for run > 0 {
				if run < 3 {
					syms = append(syms, v)
					extras = append(extras, 0)
					run--
					continue
				}
				n := run
				if n > 6 {
					n = 6
				}
				syms = append(syms, 16)
				extras = append(extras, n-3)
				run -= n
			}
		}

		for i < len(lens) && lens[i] == v {
			i++
		}
	}
	return syms, extras
}
