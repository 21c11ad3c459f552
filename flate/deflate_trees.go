package flate

// Dynamic Huffman tree construction, a direct port of the classic zlib
// trees.c algorithm: build an optimal binary tree over the observed symbol
// frequencies with a simple array-backed heap, derive bit lengths from it
// (repairing any code longer than maxBits by the standard "borrow from a
// shorter code, lengthen the first code of a too-long one" shuffle), then
// assign canonical codes in symbol order within each length.

const maxBitLength = 15

// treeNode is one slot of the combined heap/tree array: during heap-build
// freq is the node's weight; afterward dad is that node's parent index and
// length its bit length.
type treeNode struct {
	freq, dad, depth int
	code, length     int
}

// buildTree computes bit lengths for the symbols in freq (a parallel array
// of observed frequencies), capped at maxBitLength, returning the bit
// length assigned to each symbol (0 for unused symbols) and the maximum
// length actually used.
func buildTree(freq []int) ([]int, int) {
	return buildTreeLimit(freq, maxBitLength)
}

// buildTreeLimit is buildTree with an explicit bit-length ceiling, used for
// the 19-symbol code-length alphabet, which RFC 1951 §3.2.7 caps at 7 bits.
func buildTreeLimit(freq []int, limit int) ([]int, int) {
	n := len(freq)
	nodes := make([]treeNode, 2*n+1)
	for i, f := range freq {
		nodes[i].freq = f
		nodes[i].dad = -1
	}

	heap := make([]int, 0, n+1)
	for i, f := range freq {
		if f > 0 {
			heap = append(heap, i)
		}
	}
	// A Huffman tree needs at least two leaves even if only one or zero
	// symbols were actually used, so decoding of a degenerate block still
	// consumes a nonzero number of bits per symbol.
	for len(heap) < 2 {
		var filler int
		for filler = 0; filler < n; filler++ {
			if nodes[filler].freq == 0 {
				break
			}
		}
		nodes[filler].freq = 1
		heap = append(heap, filler)
	}
	siftUp := func(h []int) {
		i := len(h) - 1
		for i > 0 {
			parent := (i - 1) / 2
			if nodes[h[parent]].freq <= nodes[h[i]].freq {
				break
			}
			h[parent], h[i] = h[i], h[parent]
			i = parent
		}
	}
	// heapify via repeated sift-up insertion (n is tiny: <=286)
	built := make([]int, 0, len(heap))
	for _, v := range heap {
		built = append(built, v)
		siftUp(built)
	}
	heap = built

	popMin := func(h []int) (int, []int) {
		min := h[0]
		last := len(h) - 1
		h[0] = h[last]
		h = h[:last]
		i := 0
		for {
			l, r := 2*i+1, 2*i+2
			smallest := i
			if l < len(h) && nodes[h[l]].freq < nodes[h[smallest]].freq {
				smallest = l
			}
			if r < len(h) && nodes[h[r]].freq < nodes[h[smallest]].freq {
				smallest = r
			}
			if smallest == i {
				break
			}
			h[i], h[smallest] = h[smallest], h[i]
			i = smallest
		}
		return min, h
	}

	next := n
	for len(heap) > 1 {
		var a, b int
		a, heap = popMin(heap)
		b, heap = popMin(heap)
		nodes[next] = treeNode{freq: nodes[a].freq + nodes[b].freq, dad: -1}
		nodes[a].dad = next
		nodes[b].dad = next
		heap = append(heap, next)
		siftUp(heap)
		next++
	}
	maxUsed := 0
	lengths := make([]int, n)
	// Depth of each leaf is the number of dad hops back to the root; there
	// are no explicit child pointers, so walk each leaf upward instead of
	// the tree top-down.
	for i := 0; i < n; i++ {
		if freq[i] == 0 {
			continue
		}
		d := 0
		for p := nodes[i].dad; p != -1; p = nodes[p].dad {
			d++
		}
		lengths[i] = d
		if d > maxUsed {
			maxUsed = d
		}
	}

	if maxUsed > limit {
		repairOverlongCodes(lengths, freq, limit)
		maxUsed = limit
	}
	return lengths, maxUsed
}

// repairOverlongCodes shortens codes that exceed limit using the standard
// Huffman-with-length-limit patch (trees.c's gen_bitlen overflow fix): cap
// every length at limit, count codes at each length, then, while the capped
// lengths oversubscribe the code space (Kraft sum above 1), move the deepest
// leaf shorter than limit one level down and give it a capped code as its
// sibling, preserving a valid (possibly slightly suboptimal) prefix code.
func repairOverlongCodes(lengths, freq []int, limit int) {
	var blCount [maxBitLength + 2]int
	for i, l := range lengths {
		if freq[i] == 0 {
			continue
		}
		if l > limit {
			l = limit
		}
		blCount[l]++
	}
	for i, l := range lengths {
		if freq[i] > 0 && l > limit {
			lengths[i] = limit
		}
	}
	kraft := 0 // Kraft sum in units of 2^-limit
	for bits := 1; bits <= limit; bits++ {
		kraft += blCount[bits] << uint(limit-bits)
	}
	for bits := limit; kraft > 1<<uint(limit); kraft-- {
		bits2 := bits - 1
		for bits2 > 0 && blCount[bits2] == 0 {
			bits2--
		}
		if bits2 <= 0 {
			break
		}
		blCount[bits2]--
		blCount[bits2+1] += 2
		blCount[bits]--
	}

	// Reassign lengths to symbols in increasing frequency order, longest
	// lengths first, so that the adjusted blCount histogram is realized by
	// a valid assignment that keeps common symbols short.
	order := make([]int, 0, len(lengths))
	for i := range lengths {
		if freq[i] > 0 {
			order = append(order, i)
		}
	}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && freq[order[j]] < freq[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	idx := 0
	for bits := limit; bits >= 1; bits-- {
		for n := blCount[bits]; n > 0; n-- {
			if idx >= len(order) {
				break
			}
			lengths[order[idx]] = bits
			idx++
		}
	}
}

// assignCodes computes canonical Huffman codes for the given bit lengths,
// shortest-code-first and, within a length, in increasing symbol order.
func assignCodes(lengths []int, maxLen int) []int {
	var blCount [maxBitLength + 2]int
	for _, l := range lengths {
		if l > 0 {
			blCount[l]++
		}
	}
	var nextCode [maxBitLength + 2]int
	code := 0
	for bits := 1; bits <= maxLen; bits++ {
		code = (code + blCount[bits-1]) << 1
		nextCode[bits] = code
	}
	codes := make([]int, len(lengths))
	for i, l := range lengths {
		if l == 0 {
			continue
		}
		codes[i] = reverseBits(nextCode[l], l)
		nextCode[l]++
	}
	return codes
}

func reverseBits(v, n int) int {
	r := 0
	for i := 0; i < n; i++ {
		r = (r << 1) | (v & 1)
		v >>= 1
	}
	return r
}
