package bitio

import "testing"

func TestReaderBitsAcrossBytes(t *testing.T) {
	var r Reader
	r.PullByte(0xb5) // 1011 0101
	r.PullByte(0x01) // 0000 0001

	if !r.Need(3) {
		t.Fatal("expected 3 bits available")
	}
	if got := r.Bits(3); got != 0x5 { // low 3 bits of 0xb5: 101
		t.Errorf("Bits(3) = %#x, want 0x5", got)
	}
	if got := r.Bits(5); got != 0x16 { // next 5 bits: 10110
		t.Errorf("Bits(5) = %#x, want 0x16", got)
	}
	if got := r.Bits(8); got != 0x01 {
		t.Errorf("Bits(8) = %#x, want 0x01", got)
	}
	if r.Count != 0 {
		t.Errorf("Count = %d, want 0", r.Count)
	}
}

func TestReaderByteAlign(t *testing.T) {
	var r Reader
	r.PullByte(0xff)
	r.Bits(3)
	r.ByteAlign()
	if r.Count != 0 {
		t.Errorf("Count after ByteAlign = %d, want 0", r.Count)
	}
}

func TestReaderReset(t *testing.T) {
	var r Reader
	r.PullByte(0xff)
	r.Reset()
	if r.Count != 0 || r.Hold != 0 {
		t.Errorf("Reset left Count=%d Hold=%#x", r.Count, r.Hold)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	var w Writer
	w.WriteBits(0x5, 3)
	w.WriteBits(0x16, 5)
	w.WriteBits(0x01, 8)
	w.Flush()

	var r Reader
	for _, b := range w.Pending {
		r.PullByte(b)
	}
	if got := r.Bits(3); got != 0x5 {
		t.Errorf("Bits(3) = %#x, want 0x5", got)
	}
	if got := r.Bits(5); got != 0x16 {
		t.Errorf("Bits(5) = %#x, want 0x16", got)
	}
	if got := r.Bits(8); got != 0x01 {
		t.Errorf("Bits(8) = %#x, want 0x01", got)
	}
}

func TestWriterAlignByte(t *testing.T) {
	var w Writer
	w.WriteBits(0x3, 3)
	w.AlignByte()
	if w.Count != 0 {
		t.Errorf("Count after AlignByte = %d, want 0", w.Count)
	}
	if len(w.Pending) != 1 {
		t.Fatalf("Pending = %d bytes, want 1", len(w.Pending))
	}
	if w.Pending[0] != 0x03 {
		t.Errorf("Pending[0] = %#x, want 0x03", w.Pending[0])
	}
}

func TestWriterDrain(t *testing.T) {
	var w Writer
	w.WriteBytes([]byte{1, 2, 3, 4, 5})

	dst := make([]byte, 3)
	n := w.Drain(dst)
	if n != 3 {
		t.Fatalf("Drain returned %d, want 3", n)
	}
	if string(dst) != "\x01\x02\x03" {
		t.Errorf("drained %v", dst)
	}
	if len(w.Pending) != 2 {
		t.Fatalf("Pending = %d bytes, want 2", len(w.Pending))
	}
	n = w.Drain(dst)
	if n != 2 {
		t.Fatalf("second Drain returned %d, want 2", n)
	}
	if dst[0] != 4 || dst[1] != 5 {
		t.Errorf("drained %v", dst[:n])
	}
}
