package checksum

import "testing"

func TestAdler32KnownVector(t *testing.T) {
	var data []byte
	for i := 0; i < 100; i++ {
		data = append(data, []byte("Hello, World!")...)
	}
	got := Adler32Checksum(0, data)
	want := uint32(0x6B5F4B5D)
	if got != want {
		t.Errorf("Adler32Checksum = %#x, want %#x", got, want)
	}
}

func TestAdler32Empty(t *testing.T) {
	if got := Adler32Checksum(0, nil); got != 1 {
		t.Errorf("Adler32Checksum(nil) = %#x, want 1", got)
	}
}

func TestAdler32Incremental(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := Adler32Checksum(0, data)

	var a Adler32
	a.Write(data[:20])
	a.Write(data[20:])
	if got := a.Sum32(); got != whole {
		t.Errorf("incremental sum = %#x, want %#x", got, whole)
	}
}

func TestAdler32Combine(t *testing.T) {
	a := []byte("first part of the stream, ")
	b := []byte("second part of the stream.")

	adlerA := Adler32Checksum(0, a)
	adlerB := Adler32Checksum(0, b)
	want := Adler32Checksum(0, append(append([]byte{}, a...), b...))

	got := Adler32Combine(adlerA, adlerB, int64(len(b)))
	if got != want {
		t.Errorf("Adler32Combine = %#x, want %#x", got, want)
	}
}

func TestCRC32KnownVector(t *testing.T) {
	got := CRC32Checksum(0, []byte("123456789"))
	want := uint32(0xCBF43926) // the standard CRC-32 check value for "123456789"
	if got != want {
		t.Errorf("CRC32Checksum = %#x, want %#x", got, want)
	}
}

func TestCRC32Incremental(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := CRC32Checksum(0, data)

	var c CRC32
	c.Write(data[:10])
	c.Write(data[10:])
	if got := c.Sum32(); got != whole {
		t.Errorf("incremental sum = %#x, want %#x", got, whole)
	}
}

func TestCRC32Combine(t *testing.T) {
	a := []byte("first part, ")
	b := []byte("second part.")

	crcA := CRC32Checksum(0, a)
	crcB := CRC32Checksum(0, b)
	want := CRC32Checksum(0, append(append([]byte{}, a...), b...))

	got := CRC32Combine(crcA, crcB, int64(len(b)))
	if got != want {
		t.Errorf("CRC32Combine = %#x, want %#x", got, want)
	}
}

func TestCRC32CombineOp(t *testing.T) {
	a := []byte("abc")
	b := []byte("defgh")

	crcA := CRC32Checksum(0, a)
	crcB := CRC32Checksum(0, b)
	want := CRC32Checksum(0, append(append([]byte{}, a...), b...))

	op := NewCRC32Operator(int64(len(b)))
	got := CRC32CombineOp(crcA, crcB, op)
	if got != want {
		t.Errorf("CRC32CombineOp = %#x, want %#x", got, want)
	}
}
