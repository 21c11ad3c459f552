package flate

import "testing"

func TestBuildTreeSingleSymbol(t *testing.T) {
	freq := make([]int, 10)
	freq[3] = 42
	lengths, maxUsed := buildTree(freq)
	if lengths[3] != 1 {
		t.Errorf("lone used symbol got length %d, want 1", lengths[3])
	}
	if maxUsed != 1 {
		t.Errorf("maxUsed = %d, want 1", maxUsed)
	}
	for i, l := range lengths {
		if i != 3 && l != 0 {
			t.Errorf("unused symbol %d got nonzero length %d", i, l)
		}
	}
}

func TestBuildTreeAllZeroFreq(t *testing.T) {
	// No symbol was ever used (e.g. a block with no back-references has an
	// all-zero distance-code frequency table). buildTree must not panic on
	// the empty heap, and since no real symbol occurred, every length comes
	// back 0; writeDynamicHeader's own HDIST/HLIT floor is what turns that
	// into a spec-valid "one distance code, zero bits" header.
	freq := make([]int, 5)
	lengths, maxUsed := buildTree(freq)
	if maxUsed != 0 {
		t.Errorf("maxUsed = %d, want 0", maxUsed)
	}
	for i, l := range lengths {
		if l != 0 {
			t.Errorf("symbol %d got length %d, want 0 (never observed)", i, l)
		}
	}
}

func TestBuildTreeRespectsBitLengthLimit(t *testing.T) {
	// A Fibonacci-like frequency skew forces an unconstrained Huffman tree
	// deeper than 7 bits, which buildTreeLimit(freq, 7) must repair.
	n := 19
	freq := make([]int, n)
	a, b := 1, 1
	for i := 0; i < n; i++ {
		freq[i] = a
		a, b = b, a+b
	}
	lengths, maxUsed := buildTreeLimit(freq, 7)
	if maxUsed > 7 {
		t.Errorf("maxUsed = %d, want <= 7", maxUsed)
	}
	for i, l := range lengths {
		if l > 7 {
			t.Errorf("symbol %d got length %d, want <= 7", i, l)
		}
	}
	verifyKraft(t, lengths)
}

// verifyKraft checks the Kraft-McMillan equality sum(2^-length) == 1 that
// every complete canonical prefix code over the used symbols must satisfy.
func verifyKraft(t *testing.T, lengths []int) {
	t.Helper()
	var num, den int64 = 0, 1
	maxLen := 0
	for _, l := range lengths {
		if l > maxLen {
			maxLen = l
		}
	}
	if maxLen == 0 {
		return
	}
	den = 1 << uint(maxLen)
	for _, l := range lengths {
		if l == 0 {
			continue
		}
		num += 1 << uint(maxLen-l)
	}
	if num != den {
		t.Errorf("Kraft sum = %d/%d, want equality (1.0)", num, den)
	}
}

func TestAssignCodesCanonicalOrdering(t *testing.T) {
	lengths := []int{3, 3, 3, 3, 2, 4, 4}
	codes := assignCodes(lengths, 4)

	seen := make(map[int]bool)
	for i, l := range lengths {
		c := codes[i]
		if c>>uint(l) != 0 {
			t.Errorf("code %d for symbol %d doesn't fit in %d bits", c, i, l)
		}
		key := c<<4 | l
		if seen[key] {
			t.Errorf("duplicate code %d at length %d", c, l)
		}
		seen[key] = true
	}
}

func TestReverseBits(t *testing.T) {
	if got := reverseBits(0b101, 3); got != 0b101 {
		t.Errorf("reverseBits(0b101, 3) = %b, want %b", got, 0b101)
	}
	if got := reverseBits(0b001, 3); got != 0b100 {
		t.Errorf("reverseBits(0b001, 3) = %b, want %b", got, 0b100)
	}
	if got := reverseBits(0, 5); got != 0 {
		t.Errorf("reverseBits(0, 5) = %d, want 0", got)
	}
}
