package huffman

// FixedLiterals and FixedDistances are the tables for RFC 1951 §3.2.6's fixed
// Huffman block: literal/length codes 0-143 get 8 bits, 144-255 get 9 bits,
// 256-279 (end-of-block and the short length codes) get 7 bits, 280-287 get
// 8 bits, and distance codes 0-31 get 5 bits (286-287 and 30-31 decode as
// invalid, since RFC 1951 gives them no meaning). They are built once, via the
// same Build used for dynamic blocks, since a fixed block is just a dynamic
// one whose code lengths happen to be constant.
var (
	FixedLiterals     [512]Entry
	FixedDistances    [32]Entry
	FixedLiteralsBits int
	FixedDistBits     int
)

func init() {
	lens := make([]int, 288)
	for i := 0; i < 144; i++ {
		lens[i] = 8
	}
	for i := 144; i < 256; i++ {
		lens[i] = 9
	}
	for i := 256; i < 280; i++ {
		lens[i] = 7
	}
	for i := 280; i < 288; i++ {
		lens[i] = 8
	}

	work := make([]int, 288)
	start := 0
	root := 9
	if Build(LensKind, lens, FixedLiterals[:], &start, &root, work) != Ok {
		panic("huffman: fixed literal/length table failed to build")
	}
	FixedLiteralsBits = root

	distLens := make([]int, 32)
	for i := range distLens {
		distLens[i] = 5
	}
	distStart := 0
	distRoot := 5
	if Build(DistsKind, distLens, FixedDistances[:], &distStart, &distRoot, work[:32]) != Ok {
		panic("huffman: fixed distance table failed to build")
	}
	FixedDistBits = distRoot
}
