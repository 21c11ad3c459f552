// Package huffman builds the compact, multi-bit-lookahead decoding tables
// used by the inflate engine, and holds the fixed (static) Huffman tables
// defined by RFC 1951 §3.2.6. The builder is a direct port of zlib's
// inftrees.c algorithm, adapted to write into a flat, caller-owned entry
// pool addressed by integer offsets rather than raw pointers: a table-
// pointer entry's Val is the offset of its sub-table within the same pool.
package huffman

// MaxBits is the longest permitted DEFLATE code length.
const MaxBits = 15

// Table-space bounds: with at most 286 literal/length symbols and 30
// distance symbols, and a maximum code length of 15, the total entries any
// root-plus-subtable decoding structure can require is bounded by these
// constants (the classic zlib ENOUGH_LENS/ENOUGH_DISTS figures).
const (
	EnoughLens  = 852
	EnoughDists = 592
	Enough      = EnoughLens + EnoughDists
)

// Kind selects which of the three DEFLATE code alphabets is being built,
// since each has different base/extra-bits tables for the values its
// symbols decode to.
type Kind int

const (
	CodesKind Kind = iota // the 19-symbol code-length alphabet (RFC 3.2.7)
	LensKind              // the 286-symbol literal/length alphabet
	DistsKind             // the 30-symbol distance alphabet
)

// Entry op field bit meanings, matching the zlib inftrees.c convention:
//   op == 0                : literal value in Val
//   op == 32+64 (0x60)     : end-of-block
//   op == 16|n, n in 0..13 : length/distance base in Val, n extra bits follow
//   op in 1..15            : table pointer, op is the sub-table's index width
//   op == 64               : invalid code
//
// A table-pointer entry is distinguished by Bits holding the *root* table's
// index width and Val holding the sub-table's starting offset in the pool;
// TablePointer reports whether an entry is of that kind.
const (
	opLiteral = 0
	opEOB     = 32 + 64
	opInvalid = 64
)

// Entry is one slot of a decode table: op encodes the entry kind, bits how
// many bits of the accumulator it consumes (or, for a table pointer, the
// root table's width), and val a literal, a length/distance base, or a
// sub-table offset.
type Entry struct {
	Op   uint8
	Bits uint8
	Val  uint16
}

// IsTablePointer reports whether e redirects to a sub-table rather than
// decoding a symbol directly. Table-pointer entries have op in 1..15 (the
// sub-table's index width); literals (0), length/distance entries (16|n),
// end-of-block (96) and invalid codes (64) all fall outside that range.
func (e Entry) IsTablePointer() bool {
	return e.Op != 0 && e.Op&64 == 0 && e.Op <= MaxBits
}

// IsLiteral reports whether decoding e yields a literal byte.
func (e Entry) IsLiteral() bool { return e.Op == opLiteral }

// IsEndOfBlock reports whether e is the end-of-block symbol.
func (e Entry) IsEndOfBlock() bool { return e.Op == opEOB }

// IsInvalid reports whether e marks a code that cannot legally appear.
func (e Entry) IsInvalid() bool { return e.Op == opInvalid }

// HasExtraBits reports whether decoding e requires reading ExtraBits() more
// bits to add to the base value e.Val (a length or distance entry). The
// lenExtra/distExtra tables encode this op as 16|nb, so it is always >15.
func (e Entry) HasExtraBits() bool {
	return e.Op&16 != 0
}

// ExtraBits returns the number of extra bits to read and add to e.Val; only
// meaningful when HasExtraBits reports true.
func (e Entry) ExtraBits() uint8 {
	return e.Op & 0x0f
}

// Result classifies the outcome of Build, matching spec.md §4.3: the table
// either built successfully (Ok, including the degenerate single-symbol
// case), or the length vector was structurally broken (Oversubscribed,
// Incomplete) or exceeded the provable table-space bound (Invalid).
type Result int

const (
	Ok Result = iota
	Oversubscribed
	Incomplete
	Invalid
)

func (r Result) String() string {
	switch r {
	case Ok:
		return "ok"
	case Oversubscribed:
		return "over-subscribed"
	case Incomplete:
		return "incomplete"
	case Invalid:
		return "invalid"
	}
	return "unknown"
}

var (
	// Symbols 286-287 and distance symbols 30-31 only occur in the fixed
	// tables; they decode as invalid codes.
	lenBase = [31]uint16{3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258, 0, 0}
	lenExtra = [31]uint8{16, 16, 16, 16, 16, 16, 16, 16, 17, 17, 17, 17, 18, 18, 18, 18,
		19, 19, 19, 19, 20, 20, 20, 20, 21, 21, 21, 21, 16, opInvalid, opInvalid}
	distBase = [32]uint16{1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145,
		8193, 12289, 16385, 24577, 0, 0}
	distExtra = [32]uint8{16, 16, 16, 16, 17, 17, 18, 18, 19, 19, 20, 20, 21, 21, 22, 22,
		23, 23, 24, 24, 25, 25, 26, 26, 27, 27, 28, 28, 29, 29, opInvalid, opInvalid}
)

// Build constructs a decode table for the code whose symbol i has length
// lens[i] (0 meaning "symbol unused"), writing entries into pool starting at
// *start, and reports the root table's bit width in *rootBits (an input
// hint, clamped down to what the code actually needs and up to the shortest
// code present). On return *start has advanced past every entry written
// (root table plus any sub-tables), so a caller building literal/length
// then distance tables back to back simply calls Build twice against the
// same pool and start cursor.
//
// work is scratch space of length >= len(lens), reused across calls.
func Build(kind Kind, lens []int, pool []Entry, start *int, rootBits *int, work []int) Result {
	var count [MaxBits + 1]int
	for _, n := range lens {
		if n != 0 {
			count[n]++
		}
	}

	root := *rootBits
	max := MaxBits
	for ; max >= 1; max-- {
		if count[max] != 0 {
			break
		}
	}
	if root > max {
		root = max
	}
	if max == 0 {
		// No symbols at all: emit a two-entry table that always reports an
		// invalid code, so that any attempt to decode fails cleanly.
		pool[*start] = Entry{Op: opInvalid, Bits: 1, Val: 0}
		pool[*start+1] = Entry{Op: opInvalid, Bits: 1, Val: 0}
		*start += 2
		*rootBits = 1
		return Ok
	}
	min := 1
	for ; min < max; min++ {
		if count[min] != 0 {
			break
		}
	}
	if root < min {
		root = min
	}

	// Kraft-McMillan check: an over-subscribed set can never be a valid
	// prefix code; an incomplete one (left > 0) is only tolerated for the
	// degenerate single-symbol case (max == 1) in the lens/dists alphabets.
	left := 1
	for n := 1; n <= MaxBits; n++ {
		left <<= 1
		left -= count[n]
		if left < 0 {
			return Oversubscribed
		}
	}
	if left > 0 && (kind == CodesKind || max != 1) {
		return Incomplete
	}

	var offs [MaxBits + 2]int
	for n := 1; n < MaxBits; n++ {
		offs[n+1] = offs[n] + count[n]
	}
	for sym, n := range lens {
		if n != 0 {
			work[offs[n]] = sym
			offs[n]++
		}
	}

	var base []uint16
	var extra []uint8
	var match int
	switch kind {
	case CodesKind:
		match = 20
	case LensKind:
		base, extra, match = lenBase[:], lenExtra[:], 257
	case DistsKind:
		base, extra, match = distBase[:], distExtra[:], 0
	default:
		return Invalid
	}

	huff := 0
	sym := 0
	length := min
	next := *start
	curr := root
	drop := 0
	low := -1
	used := 1 << uint(root)
	mask := used - 1

	if (kind == LensKind && used > EnoughLens) || (kind == DistsKind && used > EnoughDists) {
		return Invalid
	}

	for {
		var here Entry
		here.Bits = uint8(length - drop)
		w := work[sym]
		switch {
		case w+1 < match:
			here.Op = opLiteral
			here.Val = uint16(w)
		case w >= match:
			here.Op = extra[w-match]
			here.Val = base[w-match]
		default:
			here.Op = opEOB
			here.Val = 0
		}

		incr := 1 << uint(length-drop)
		fill := 1 << uint(curr)
		minFill := fill
		for {
			fill -= incr
			pool[next+(huff>>uint(drop))+fill] = here
			if fill == 0 {
				break
			}
		}

		incr = 1 << uint(length-1)
		for huff&incr != 0 {
			incr >>= 1
		}
		if incr != 0 {
			huff &= incr - 1
			huff += incr
		} else {
			huff = 0
		}

		sym++
		count[length]--
		if count[length] == 0 {
			if length == max {
				break
			}
			length = lens[work[sym]]
		}

		if length > root && (huff&mask) != low {
			if drop == 0 {
				drop = root
			}
			next += minFill

			curr = length - drop
			l := 1 << uint(curr)
			for curr+drop < max {
				l -= count[curr+drop]
				if l <= 0 {
					break
				}
				curr++
				l <<= 1
			}

			used += 1 << uint(curr)
			if (kind == LensKind && used > EnoughLens) || (kind == DistsKind && used > EnoughDists) {
				return Invalid
			}

			low = huff & mask
			pool[*start+low] = Entry{Op: uint8(curr), Bits: uint8(root), Val: uint16(next - *start)}
		}
	}

	if huff != 0 {
		pool[next+(huff>>uint(drop))] = Entry{Op: opInvalid, Bits: uint8(length - drop), Val: 0}
	}

	*start += used
	*rootBits = root
	return Ok
}
