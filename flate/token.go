package flate

// A token is either a literal byte or a length/distance back-reference,
// packed into a single uint32 so a block's tokens can be buffered cheaply
// before the block's Huffman codes are chosen and emitted.
type token uint32

const (
	literalTok = 0 << 30
	matchTok   = 1 << 30
	tokMask    = 1<<30 - 1
)

func literalToken(b byte) token { return token(literalTok | uint32(b)) }

func matchToken(length, dist uint32) token {
	return token(matchTok | length<<16 | dist)
}

func (t token) isLiteral() bool { return t&matchTok == 0 }
func (t token) literal() byte   { return byte(t) }
func (t token) length() int     { return int((t >> 16) & 0x3fff) }
func (t token) distance() int   { return int(t & 0xffff) }

// lengthCode maps a match length (3..258) to its DEFLATE length symbol
// (257..285) and the number of extra bits/base already encoded, mirroring
// lenBase/lenExtra in the huffman package but indexed the opposite way (by
// length rather than by symbol).
func lengthCode(length int) (sym int, extra int, extraBits uint) {
	if length == maxMatchLength {
		return 285, 0, 0
	}
	adj := length - 3
	for i, lo := range lengthBaseTable {
		hi := lo + (1 << lengthExtraTable[i]) - 1
		if adj >= lo && adj <= hi {
			return 257 + i, adj - lo, lengthExtraTable[i]
		}
	}
	return 285, 0, 0
}

// distCode maps a match distance (1..32768) to its DEFLATE distance symbol
// (0..29) and extra bits.
func distCode(dist int) (sym int, extra int, extraBits uint) {
	d := dist - 1
	for i, base := range distBaseTable {
		lo := base
		hi := lo + (1 << distExtraTable[i]) - 1
		if d >= lo && d <= hi {
			return i, d - lo, distExtraTable[i]
		}
	}
	return 29, 0, 0
}

var lengthBaseTable = [29]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 12, 14, 16, 20, 24, 28,
	32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 255}
var lengthExtraTable = [29]uint{0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0}

var distBaseTable = [30]int{0, 1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 48, 64, 96, 128, 192,
	256, 384, 512, 768, 1024, 1536, 2048, 3072, 4096, 6144,
	8192, 12288, 16384, 24576}
var distExtraTable = [30]uint{0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
	7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13}
