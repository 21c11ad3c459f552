package flate

import "github.com/neacsum/zlib/internal/huffman"

// InflateBack decompresses a raw DEFLATE stream using a callback interface
// instead of the usual NextIn/NextOut cursors, the same trade its namesake
// in zlib's infback.c makes: output is written directly into the window
// buffer and handed to out() whenever it fills, avoiding the extra copy a
// Step-driven NextOut buffer would cost. It is meant for the common
// read-a-file/write-a-file utility shape, not for streams that need to
// interleave with other I/O.
//
// in is called whenever more compressed input is needed and must return a
// non-empty slice valid until the next call, or an error to abort with
// BufError. out is called with newly decompressed bytes (a window's worth
// at a time, and once more with whatever remains at the end) and must not
// retain or modify the slice past the call; a non-nil error it returns
// aborts the decompression with BufError.
//
// InflateBack always decodes a single complete raw DEFLATE stream (no zlib
// or gzip framing) and returns StreamEnd on success, DataError on a
// malformed stream, or BufError if in or out failed.
func InflateBack(in func() ([]byte, error), out func([]byte) error) Code {
	d := newDecompressor(nil)
	window := make([]byte, windowSize)
	put := 0
	have := 0 // number of valid window bytes written so far, capped at len(window)

	var cur []byte
	failed := false

	pull := func() bool {
		for len(cur) == 0 {
			b, err := in()
			if err != nil || len(b) == 0 {
				return false
			}
			cur = b
		}
		return true
	}
	need := func(n uint) bool {
		for !d.br.Need(n) {
			if !pull() {
				return false
			}
			d.br.PullByte(cur[0])
			cur = cur[1:]
		}
		return true
	}
	flush := func() bool {
		if put == 0 {
			return true
		}
		if err := out(window[:put]); err != nil {
			failed = true
			return false
		}
		if have < len(window) {
			have = len(window)
		}
		put = 0
		return true
	}
	room := func() bool {
		if put == len(window) {
			return flush()
		}
		return true
	}
	// decodeSym mirrors flate's decodeSymbol: peek root bits regardless of
	// how many are actually buffered (unfilled high bits read as zero) and
	// commit only once the resolved entry's bit length fits within what's
	// genuinely buffered, so a trailing end-of-block code shorter than root
	// still decodes with no further input left.
	decodeSym := func(table []huffman.Entry, root int) (huffman.Entry, bool) {
		for {
			e := table[d.br.Peek(uint(root))]
			needed := uint(e.Bits)
			if e.IsTablePointer() {
				needed = uint(root) + uint(e.Op)
			}
			if d.br.Count >= needed {
				if e.IsTablePointer() {
					d.br.Drop(uint(root))
					e = table[int(e.Val)+int(d.br.Peek(uint(e.Op)))]
				}
				d.br.Drop(uint(e.Bits))
				return e, true
			}
			if !need(d.br.Count + 1) {
				return huffman.Entry{}, false
			}
		}
	}

	d.mode = modeTypeDo
	for {
		switch d.mode {
		case modeTypeDo:
			if d.last {
				d.br.ByteAlign()
				d.mode = modeDone
				continue
			}
			if !need(3) {
				return BufError
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
				d.mode = modeBad
			}

		case modeStored:
			d.br.ByteAlign()
			if !need(32) {
				return BufError
			}
			n := d.br.Bits(16)
			nn := d.br.Bits(16)
			if uint16(nn) != uint16(^n) {
				d.mode = modeBad
				continue
			}
			d.storedLen = int(n)
			for d.storedLen > 0 {
				if !room() {
					return BufError
				}
				if !pull() {
					return BufError
				}
				n := d.storedLen
				if n > len(window)-put {
					n = len(window) - put
				}
				if n > len(cur) {
					n = len(cur)
				}
				copy(window[put:], cur[:n])
				put += n
				cur = cur[n:]
				d.storedLen -= n
			}
			d.mode = modeTypeDo

		case modeTable:
			if !need(14) {
				return BufError
			}
			d.nlen = int(d.br.Bits(5)) + 257
			d.ndist = int(d.br.Bits(5)) + 1
			d.ncode = int(d.br.Bits(4)) + 4
			if d.nlen > 286 || d.ndist > 30 {
				d.mode = modeBad
				continue
			}
			d.have = 0
			d.mode = modeLenLens

		case modeLenLens:
			for d.have < d.ncode {
				if !need(3) {
					return BufError
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
				d.mode = modeBad
				continue
			}
			d.have = 0
			d.mode = modeCodeLens

		case modeCodeLens:
			for d.have < d.nlen+d.ndist && d.mode == modeCodeLens {
				e, ok := decodeSym(d.codeTable[:], d.codeRoot)
				if !ok {
					return BufError
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
						d.mode = modeBad
						continue
					}
					b = d.lensWork[d.have-1]
				case 17:
					rep, nb = 3, 3
				case 18:
					rep, nb = 11, 7
				}
				if !need(uint(nb)) {
					return BufError
				}
				rep += int(d.br.Bits(uint(nb)))
				if d.have+rep > d.nlen+d.ndist {
					d.mode = modeBad
					continue
				}
				for ; rep > 0; rep-- {
					d.lensWork[d.have] = b
					d.have++
				}
			}
			if d.mode == modeBad {
				continue
			}
			d.litRoot = 9
			start := 0
			if huffman.Build(huffman.LensKind, d.lensWork[:d.nlen], d.litTable[:], &start, &d.litRoot, d.sortWork[:d.nlen]) != huffman.Ok {
				d.mode = modeBad
				continue
			}
			d.distRoot = 6
			start = 0
			if huffman.Build(huffman.DistsKind, d.lensWork[d.nlen:d.nlen+d.ndist], d.distTable[:], &start, &d.distRoot, d.sortWork[:d.ndist]) != huffman.Ok {
				d.mode = modeBad
				continue
			}
			d.useFixed = false
			d.mode = modeLen

		case modeLen:
			litTable, litRoot := d.currentLitTable()
			e, ok := decodeSym(litTable, litRoot)
			if !ok {
				return BufError
			}
			switch {
			case e.IsLiteral():
				if !room() {
					return BufError
				}
				window[put] = byte(e.Val)
				put++
			case e.IsEndOfBlock():
				d.mode = modeTypeDo
			case e.IsInvalid():
				d.mode = modeBad
			default:
				d.length = int(e.Val)
				d.extra = e.ExtraBits()
				d.mode = modeLenExt
			}

		case modeLenExt:
			if d.extra != 0 {
				if !need(uint(d.extra)) {
					return BufError
				}
				d.length += int(d.br.Bits(uint(d.extra)))
			}
			d.mode = modeDist

		case modeDist:
			distTable, distRoot := d.currentDistTable()
			e, ok := decodeSym(distTable, distRoot)
			if !ok {
				return BufError
			}
			if e.IsInvalid() {
				d.mode = modeBad
				continue
			}
			d.distance = int(e.Val)
			d.extra = e.ExtraBits()
			d.mode = modeDistExt

		case modeDistExt:
			if d.extra != 0 {
				if !need(uint(d.extra)) {
					return BufError
				}
				d.distance += int(d.br.Bits(uint(d.extra)))
			}
			// Unlike Step's dictDecoder-backed history, the window here IS
			// the output buffer: a distance is only valid if it reaches
			// into bytes already written (flushed or still pending) in the
			// current window load, mirroring infback.c's whave/wsize check.
			if d.distance > have && d.distance > put {
				d.mode = modeBad
				continue
			}
			d.mode = modeMatch

		case modeMatch:
			for d.length > 0 {
				if !room() {
					return BufError
				}
				from := put - d.distance
				if from < 0 {
					from += len(window)
				}
				n := d.length
				if n > len(window)-put {
					n = len(window) - put
				}
				for i := 0; i < n; i++ {
					window[put+i] = window[(from+i)%len(window)]
				}
				put += n
				d.length -= n
			}
			d.mode = modeLen

		case modeDone:
			if !flush() {
				return BufError
			}
			return StreamEnd

		case modeBad:
			flush()
			if failed {
				return BufError
			}
			return DataError
		}
	}
}
