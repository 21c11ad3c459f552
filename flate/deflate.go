package flate

import "github.com/neacsum/zlib/internal/bitio"

// compressionLevel holds the hash-chain match finder's tuning knobs for one
// deflate Level, in the same shape as zlib's configuration_table and with
// its good/nice/chain figures: good/lazy/nice/chain bound the search, and a
// level with lazy==0 skips the lazy-match evaluation entirely. Levels 1-3
// carry lazy==0 here (where zlib's table holds its fast-path insert limit),
// since the extra comparison isn't worth its cost at those levels.
type compressionLevel struct {
	good, lazy, nice, chain int
}

var levelConfigs = [10]compressionLevel{
	{},
	{4, 0, 8, 4},
	{4, 0, 16, 8},
	{4, 0, 32, 32},
	{4, 4, 16, 16},
	{8, 16, 32, 32},
	{8, 16, 128, 128},
	{8, 32, 128, 256},
	{32, 128, 258, 1024},
	{32, 258, 258, 4096},
}

const (
	minMatchLength = 3
	maxMatchLength = 258
	hashBits       = 15
	hashSize       = 1 << hashBits
	hashMask       = hashSize - 1
	hashShift      = (hashBits + minMatchLength - 1) / minMatchLength
	tooFar         = 4096
)

func updateHash(h uint32, b byte) uint32 {
	return (h<<hashShift ^ uint32(b)) & hashMask
}

// compressor is the hash-chain, lazy-match DEFLATE encoder: it keeps its
// input in a flat byte slice that compact trims to the last windowSize bytes
// behind the match position, plus head/prev hash-chain tables locating the
// most recent occurrences of each 3-byte sequence.
type compressor struct {
	level    int
	strategy Strategy
	cfg      compressionLevel

	window    []byte // full accumulated input since last reset, capped lazily
	pos       int    // next byte to consider matching at
	windowEnd int    // length of valid data in window

	// blockStart is the window index where the block currently being
	// accumulated began, so flushBlock can weigh a stored encoding of
	// window[blockStart:pos] against fixed/dynamic Huffman. It goes
	// negative once compact has discarded part of that range, at which
	// point a stored block is no longer an option for this block.
	blockStart int

	head [hashSize]int32
	prev []int32

	hasDict bool

	tokens []token
	bw     bitio.Writer

	flushed  bool // not set by any code path; wroteEnd marks the final block
	wroteEnd bool

	binCount  int64 // bytes written so far classified as non-text (data_type heuristic)
	textCount int64 // bytes written so far classified as text
}

func newCompressor(level Level, strategy Strategy, dict []byte) *compressor {
	c := &compressor{strategy: strategy}
	c.setLevel(level)
	for i := range c.head {
		c.head[i] = -1
	}
	if len(dict) > 0 {
		c.window = append(c.window, dict...)
		c.windowEnd = len(c.window)
		c.pos = len(c.window)
		c.hasDict = true
		c.indexDict()
	}
	c.blockStart = c.pos
	return c
}

func (c *compressor) setLevel(level Level) {
	l := int(level)
	if level == DefaultCompression {
		l = 6
	}
	if l < 0 {
		l = 0
	}
	if l > 9 {
		l = 9
	}
	c.level = l
	c.cfg = levelConfigs[l]
	if c.prev == nil {
		c.prev = make([]int32, 0, 1<<16)
	}
}

func (c *compressor) reset() {
	strategy := c.strategy
	level := c.level
	*c = compressor{strategy: strategy}
	c.level = level
	c.cfg = levelConfigs[level]
	for i := range c.head {
		c.head[i] = -1
	}
}

func (c *compressor) indexDict() {
	for i := 0; i+minMatchLength <= len(c.window); i++ {
		c.insertHash(i)
	}
}

func (c *compressor) hashAt(i int) uint32 {
	var h uint32
	for j := 0; j < minMatchLength; j++ {
		h = updateHash(h, c.window[i+j])
	}
	return h
}

func (c *compressor) insertHash(i int) {
	if i+minMatchLength > len(c.window) {
		return
	}
	h := c.hashAt(i)
	for len(c.prev) <= i {
		c.prev = append(c.prev, -1)
	}
	c.prev[i] = c.head[h]
	c.head[h] = int32(i)
}

// findMatch searches the hash chain at pos for the longest match, bounded
// by cfg.nice and cfg.chain, reporting its length and distance (0 length if
// none at least minMatchLength was found).
func (c *compressor) findMatch(pos int) (length, dist int) {
	limit := pos - windowSize
	if limit < 0 {
		limit = -1
	}
	h := c.hashAt(pos)
	cand := c.head[h]
	chain := c.cfg.chain
	bestLen := minMatchLength - 1
	bestDist := 0
	maxLen := len(c.window) - pos
	if maxLen > maxMatchLength {
		maxLen = maxMatchLength
	}
	for cand >= 0 && int(cand) > limit && chain > 0 {
		ci := int(cand)
		n := matchLength(c.window, ci, pos, maxLen)
		if n > bestLen {
			// Prefer closer matches of equal length, per zlib's heuristic
			// of discounting very distant matches past tooFar.
			d := pos - ci
			if n > minMatchLength || d < tooFar {
				bestLen, bestDist = n, d
			}
			if n >= c.cfg.nice {
				break
			}
		}
		if int(cand) <= int(c.prevAt(ci)) {
			break
		}
		cand = c.prevAt(ci)
		chain--
	}
	if bestLen < minMatchLength {
		return 0, 0
	}
	return bestLen, bestDist
}

func (c *compressor) prevAt(i int) int32 {
	if i < len(c.prev) {
		return c.prev[i]
	}
	return -1
}

func matchLength(window []byte, a, b, max int) int {
	n := 0
	for n < max && window[a+n] == window[b+n] {
		n++
	}
	return n
}

// write feeds input into the encoder, running the lazy-match loop over any
// newly available window bytes and buffering the resulting tokens; it does
// not itself produce output bits (that happens in flushBlock, driven by
// Step).
func (c *compressor) write(p []byte) {
	c.compact()
	c.classify(p)
	c.window = append(c.window, p...)
	c.windowEnd = len(c.window)
}

// classify folds p into the running text/binary byte counts DataType
// reports from: 9 (tab), 10 (LF), 13 (CR) and the range 32-255 count as
// text bytes, every other byte counts as a binary (control) byte.
func (c *compressor) classify(p []byte) {
	for _, b := range p {
		if b == 9 || b == 10 || b == 13 || b >= 32 {
			c.textCount++
		} else {
			c.binCount++
		}
	}
}

// dataType reports the data_type heuristic classification of everything
// written so far.
func (c *compressor) dataType() DataType {
	switch {
	case c.binCount == 0 && c.textCount == 0:
		return UnknownType
	case c.binCount > c.textCount/128+1:
		// More control bytes than roughly 1 per 128 text bytes (plus one)
		// is enough to call the whole stream binary.
		return BinaryType
	default:
		return TextType
	}
}

// compact discards window bytes more than windowSize behind c.pos, once
// there are at least windowSize of them, so a long-running stream's memory
// stays bounded instead of retaining every byte ever written. Hash-chain
// entries that pointed into the discarded prefix are invalidated.
func (c *compressor) compact() {
	if c.pos < 2*windowSize {
		return
	}
	shift := c.pos - windowSize
	copy(c.window, c.window[shift:])
	c.window = c.window[:len(c.window)-shift]
	c.windowEnd -= shift
	c.pos -= shift
	if c.blockStart < shift {
		c.blockStart = -1
	} else {
		c.blockStart -= shift
	}

	for h, v := range c.head {
		if v >= 0 {
			nv := v - int32(shift)
			if nv < 0 {
				nv = -1
			}
			c.head[h] = nv
		}
	}
	for i, v := range c.prev {
		if v >= 0 {
			nv := v - int32(shift)
			if nv < 0 {
				nv = -1
			}
			c.prev[i] = nv
		}
	}
	if shift <= len(c.prev) {
		c.prev = append(c.prev[:0], c.prev[shift:]...)
	} else {
		c.prev = c.prev[:0]
	}
}

// lazyMatch runs the hash-chain/lazy-evaluation loop over window[c.pos:upto),
// appending literal/match tokens to c.tokens. At each position it finds the
// best match (if any), and for levels whose cfg.lazy is nonzero, peeks one
// byte ahead: if the next position yields a strictly longer match, the
// current byte is emitted as a literal and the longer match taken instead,
// exactly the classic deflate_slow heuristic.
func (c *compressor) lazyMatch(upto int) {
	i := c.pos
	for i < upto {
		var length, dist int
		if i+minMatchLength <= upto {
			length, dist = c.findMatch(i)
		}
		if c.strategy == HuffmanOnly {
			length = 0
		} else if c.strategy == RLE && dist != 1 {
			length = 0
		} else if c.strategy == Filtered && length <= 5 {
			length = 0
		}
		c.insertHash(i)

		if length < minMatchLength {
			c.tokens = append(c.tokens, literalToken(c.window[i]))
			i++
			continue
		}

		if c.cfg.lazy > 0 && length < c.cfg.nice && i+1+minMatchLength <= upto {
			nlen, ndist := c.findMatch(i + 1)
			if nlen > length {
				c.tokens = append(c.tokens, literalToken(c.window[i]))
				i++
				c.insertHash(i)
				length, dist = nlen, ndist
			}
		}

		c.tokens = append(c.tokens, matchToken(uint32(length), uint32(dist)))
		for j := i + 1; j < i+length && j < upto; j++ {
			c.insertHash(j)
		}
		i += length
	}
	c.pos = i
}

// fixedLitLengths/fixedDistLengths and their codes are the encoder's
// fixed-block (length,code) pairs, built here once from the same RFC 1951
// §3.2.6 lengths that internal/huffman/fixed.go uses for the decoder's
// fixed tables.
var fixedLitLengths, fixedDistLengths []int
var fixedLitCodes, fixedDistCodes []int

func init() {
	fixedLitLengths = make([]int, 288)
	for i := 0; i < 144; i++ {
		fixedLitLengths[i] = 8
	}
	for i := 144; i < 256; i++ {
		fixedLitLengths[i] = 9
	}
	for i := 256; i < 280; i++ {
		fixedLitLengths[i] = 7
	}
	for i := 280; i < 288; i++ {
		fixedLitLengths[i] = 8
	}
	fixedLitCodes = assignCodes(fixedLitLengths, 9)

	fixedDistLengths = make([]int, 30)
	for i := range fixedDistLengths {
		fixedDistLengths[i] = 5
	}
	fixedDistCodes = assignCodes(fixedDistLengths, 5)
}
