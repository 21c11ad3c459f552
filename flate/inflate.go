package flate

import (
	"github.com/neacsum/zlib/internal/bitio"
	"github.com/neacsum/zlib/internal/huffman"
)

// inflate modes, mirroring the states of zlib's inflate_mode enum restricted
// to the part of the state machine that belongs to raw DEFLATE; the zlib and
// gzip packages layer their own header/trailer states in front of this one.
const (
	modeTypeDo = iota
	modeStored
	modeCopy
	modeTable
	modeLenLens
	modeCodeLens
	modeLen
	modeLenExt
	modeDist
	modeDistExt
	modeMatch
	modeDone
	modeBad
)

var codeOrder = [19]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

type decompressor struct {
	mode int
	br   bitio.Reader
	dd   dictDecoder

	last bool // this is the final block
	typ  uint32

	// dynamic header fields
	nlen, ndist, ncode, have int
	lensWork                 [320]int // combined lit/len + dist code lengths
	sortWork                 [320]int // Build's scratch; must not alias lensWork
	codeLens                 [19]int
	codeTable                [huffman.Enough]huffman.Entry
	codeRoot                 int

	litTable  [huffman.EnoughLens]huffman.Entry
	distTable [huffman.EnoughDists]huffman.Entry
	litRoot   int
	distRoot  int
	useFixed  bool

	// stored-block remaining length
	storedLen int

	// in-flight symbol decode scratch
	length   int
	distance int
	extra    uint8

	// sync-scan scratch for Stream.Sync
	syncHave int
	syncBuf  [4]byte

	dictSet bool
	dict    []byte
}

func newDecompressor(dict []byte) *decompressor {
	d := &decompressor{}
	d.dd.init(windowSize, dict)
	d.dict = dict
	d.mode = modeTypeDo
	return d
}

func (d *decompressor) reset() {
	dict := d.dict
	*d = decompressor{}
	d.dd.init(windowSize, dict)
	d.dict = dict
	d.mode = modeTypeDo
}

const windowSize = 1 << 15

// InitInflate installs a fresh raw-DEFLATE decoder engine on s.
func (s *Stream) InitInflate() Code {
	s.engine = newDecompressor(nil)
	log.Debugf("flate: inflate stream opened")
	return StreamOK
}

// InitInflateDict is like InitInflate but primes the window with a preset
// dictionary, as produced by a matching deflate SetDictionary call.
func (s *Stream) InitInflateDict(dict []byte) Code {
	s.engine = newDecompressor(dict)
	log.Debugf("flate: inflate stream opened, dict=%d bytes", len(dict))
	return StreamOK
}

// need feeds bytes from s.NextIn into d.br until n bits are available
// or input runs out; it reports whether n bits are now available.
func (d *decompressor) need(s *Stream, n uint) bool {
	for !d.br.Need(n) {
		if len(s.NextIn) == 0 {
			return false
		}
		d.br.PullByte(s.NextIn[0])
		s.consumeIn(1)
	}
	return true
}

// drain copies any buffered window output to s.NextOut, reporting whether
// everything pending has been drained.
func (d *decompressor) drain(s *Stream) bool {
	for d.dd.flushSize() > 0 {
		if len(s.NextOut) == 0 {
			return false
		}
		n := s.produceOut(d.dd.hist[d.dd.rdPos:d.dd.wrPos])
		d.dd.rdPos += n
		if d.dd.rdPos == len(d.dd.hist) {
			d.dd.wrPos, d.dd.rdPos = 0, 0
			d.dd.full = true
		}
		if n == 0 {
			return false
		}
	}
	return true
}

func (d *decompressor) step(s *Stream, flush Flush) Code {
	for {
		if !d.drain(s) {
			return StreamOK
		}
		switch d.mode {
		case modeTypeDo:
			if d.last {
				d.mode = modeDone
				continue
			}
			if !d.need(s, 3) {
				return StreamOK
			}
			d.last = d.br.Bits(1) == 1
			d.typ = d.br.Bits(2)
			switch d.typ {
			case 0:
				d.mode = modeStored
			case 1:
				d.useFixed = true
				d.mode = modeLen
			case 2:
				d.mode = modeTable
			default:
				s.Msg = "invalid block type"
				d.mode = modeBad
				return DataError
			}

		case modeStored:
			d.br.ByteAlign()
			if !d.need(s, 32) {
				return StreamOK
			}
			n := d.br.Bits(16)
			nn := d.br.Bits(16)
			if uint16(nn) != uint16(^n) {
				s.Msg = "invalid stored block lengths"
				d.mode = modeBad
				return DataError
			}
			d.storedLen = int(n)
			d.mode = modeCopy

		case modeCopy:
			for d.storedLen > 0 {
				if d.dd.availSize() == 0 {
					if !d.drain(s) {
						return StreamOK
					}
					continue
				}
				if len(s.NextIn) == 0 {
					return StreamOK
				}
				n := d.storedLen
				if n > d.dd.availSize() {
					n = d.dd.availSize()
				}
				if n > len(s.NextIn) {
					n = len(s.NextIn)
				}
				copy(d.dd.writeSlice(), s.NextIn[:n])
				d.dd.writeMark(n)
				s.consumeIn(n)
				d.storedLen -= n
			}
			d.mode = modeTypeDo

		case modeTable:
			if !d.need(s, 14) {
				return StreamOK
			}
			d.nlen = int(d.br.Bits(5)) + 257
			d.ndist = int(d.br.Bits(5)) + 1
			d.ncode = int(d.br.Bits(4)) + 4
			if d.nlen > 286 || d.ndist > 30 {
				s.Msg = "too many length or distance symbols"
				d.mode = modeBad
				return DataError
			}
			d.have = 0
			d.mode = modeLenLens

		case modeLenLens:
			for d.have < d.ncode {
				if !d.need(s, 3) {
					return StreamOK
				}
				d.codeLens[codeOrder[d.have]] = int(d.br.Bits(3))
				d.have++
			}
			for d.have < 19 {
				d.codeLens[codeOrder[d.have]] = 0
				d.have++
			}
			d.codeRoot = 7
			start := 0
			if huffman.Build(huffman.CodesKind, d.codeLens[:], d.codeTable[:], &start, &d.codeRoot, d.sortWork[:19]) != huffman.Ok {
				s.Msg = "invalid code lengths set"
				d.mode = modeBad
				return DataError
			}
			d.have = 0
			d.mode = modeCodeLens

		case modeCodeLens:
			for d.have < d.nlen+d.ndist {
				e, ok := decodeSymbol(s, d, &d.br, d.codeTable[:], d.codeRoot)
				if !ok {
					return StreamOK
				}
				sym := int(e.Val)
				if sym < 16 {
					d.lensWork[d.have] = sym
					d.have++
					continue
				}
				var rep, nb, b int
				switch sym {
				case 16:
					rep, nb = 3, 2
					if d.have == 0 {
						s.Msg = "repeat length with no previous length"
						d.mode = modeBad
						return DataError
					}
					b = d.lensWork[d.have-1]
				case 17:
					rep, nb = 3, 3
				case 18:
					rep, nb = 11, 7
				default:
					s.Msg = "invalid length/distance code"
					d.mode = modeBad
					return DataError
				}
				if !d.need(s, uint(nb)) {
					return StreamOK
				}
				rep += int(d.br.Bits(uint(nb)))
				if d.have+rep > d.nlen+d.ndist {
					s.Msg = "repeated lengths exceed total symbols"
					d.mode = modeBad
					return DataError
				}
				for ; rep > 0; rep-- {
					d.lensWork[d.have] = b
					d.have++
				}
			}
			d.litRoot = 9
			start := 0
			if huffman.Build(huffman.LensKind, d.lensWork[:d.nlen], d.litTable[:], &start, &d.litRoot, d.sortWork[:d.nlen]) != huffman.Ok {
				s.Msg = "invalid literal/length code lengths"
				d.mode = modeBad
				return DataError
			}
			d.distRoot = 6
			start = 0
			if huffman.Build(huffman.DistsKind, d.lensWork[d.nlen:d.nlen+d.ndist], d.distTable[:], &start, &d.distRoot, d.sortWork[:d.ndist]) != huffman.Ok {
				s.Msg = "invalid distance code lengths"
				d.mode = modeBad
				return DataError
			}
			d.useFixed = false
			d.mode = modeLen

		case modeLen:
			litTable, litRoot := d.currentLitTable()
			e, ok := decodeSymbol(s, d, &d.br, litTable, litRoot)
			if !ok {
				return StreamOK
			}
			switch {
			case e.IsLiteral():
				if d.dd.availSize() == 0 {
					if !d.drain(s) {
						return StreamOK
					}
				}
				d.dd.writeByte(byte(e.Val))
				continue
			case e.IsEndOfBlock():
				d.mode = modeTypeDo
				continue
			case e.IsInvalid():
				s.Msg = "invalid literal/length code"
				d.mode = modeBad
				return DataError
			default:
				d.length = int(e.Val)
				d.extra = e.ExtraBits()
				d.mode = modeLenExt
			}

		case modeLenExt:
			if d.extra != 0 {
				if !d.need(s, uint(d.extra)) {
					return StreamOK
				}
				d.length += int(d.br.Bits(uint(d.extra)))
			}
			d.mode = modeDist

		case modeDist:
			distTable, distRoot := d.currentDistTable()
			e, ok := decodeSymbol(s, d, &d.br, distTable, distRoot)
			if !ok {
				return StreamOK
			}
			if e.IsInvalid() {
				s.Msg = "invalid distance code"
				d.mode = modeBad
				return DataError
			}
			d.distance = int(e.Val)
			d.extra = e.ExtraBits()
			d.mode = modeDistExt

		case modeDistExt:
			if d.extra != 0 {
				if !d.need(s, uint(d.extra)) {
					return StreamOK
				}
				d.distance += int(d.br.Bits(uint(d.extra)))
			}
			if d.distance > d.dd.histSize() {
				s.Msg = "distance too far back"
				d.mode = modeBad
				return DataError
			}
			d.mode = modeMatch

		case modeMatch:
			for d.length > 0 {
				if d.dd.availSize() == 0 {
					if !d.drain(s) {
						return StreamOK
					}
					continue
				}
				n := d.dd.writeCopy(d.distance, d.length)
				d.length -= n
				if n == 0 {
					return StreamOK
				}
			}
			d.mode = modeLen

		case modeDone:
			if !d.drain(s) {
				return StreamOK
			}
			return StreamEnd

		case modeBad:
			return DataError

		default:
			return s.fail(StreamError, "unknown inflate state")
		}

		if flush == Block && d.mode == modeTypeDo {
			return StreamOK
		}
	}
}

func (d *decompressor) currentLitTable() ([]huffman.Entry, int) {
	if d.useFixed {
		return huffman.FixedLiterals[:], huffman.FixedLiteralsBits
	}
	return d.litTable[:], d.litRoot
}

func (d *decompressor) currentDistTable() ([]huffman.Entry, int) {
	if d.useFixed {
		return huffman.FixedDistances[:], huffman.FixedDistBits
	}
	return d.distTable[:], d.distRoot
}

// Sync scans NextIn for the next byte-aligned empty-stored-block marker (00
// 00 FF FF) a SyncFlush writer would have emitted, discarding everything up
// to and including it and leaving the engine ready to resume decoding
// immediately afterward. It reports StreamOK once the marker is found (the
// caller may then keep calling Step), or BufError if NextIn runs out first,
// in which case the search resumes across the next Sync call. It is a no-op
// returning StreamError for any engine other than inflate.
func (s *Stream) Sync() Code {
	d, ok := s.engine.(*decompressor)
	if !ok {
		return s.fail(StreamError, "sync requires an inflate stream")
	}
	for len(s.NextIn) > 0 {
		b := s.NextIn[0]
		s.consumeIn(1)
		if d.syncHave < 4 && b == d.syncWant() {
			d.syncBuf[d.syncHave] = b
			d.syncHave++
			if d.syncHave == 4 {
				d.br.Reset()
				d.last = false
				d.mode = modeTypeDo
				d.syncHave = 0
				return StreamOK
			}
		} else if b == 0 {
			// 00 00 00 keeps the last two zeros; 00 00 FF 00 keeps one.
			d.syncHave = 4 - d.syncHave
		} else {
			d.syncHave = 0
		}
	}
	return BufError
}

func (d *decompressor) syncWant() byte {
	if d.syncHave < 2 {
		return 0
	}
	return 0xff
}

// decodeSymbol decodes the next symbol from table. It peeks root bits
// unconditionally, letting any not-yet-buffered high bits read as zero, and
// only commits once the resolved entry's own bit length fits within what's
// genuinely buffered (br.Count) — the canonical zlib rule ("here.bits <=
// bits", mirrored by the zran reference's huffSym) — rather than requiring a
// full root-width prefetch up front. A code's real prefix bits are never
// ambiguous with fewer bits buffered than its length, by the Huffman prefix
// property, so this is safe; requiring the full root width isn't, since a
// trailing end-of-block code shorter than root can leave fewer bits
// buffered than root with no further input ever arriving.
func decodeSymbol(s *Stream, d *decompressor, br *bitio.Reader, table []huffman.Entry, root int) (huffman.Entry, bool) {
	for {
		e := table[br.Peek(uint(root))]
		needed := uint(e.Bits)
		if e.IsTablePointer() {
			needed = uint(root) + uint(e.Op)
		}
		if br.Count >= needed {
			if e.IsTablePointer() {
				br.Drop(uint(root))
				e = table[int(e.Val)+int(br.Peek(uint(e.Op)))]
			}
			br.Drop(uint(e.Bits))
			return e, true
		}
		if !d.need(s, br.Count+1) {
			return huffman.Entry{}, false
		}
	}
}
