package flate

import (
	"bytes"
	"testing"
)

func deflateAll(t *testing.T, level Level, strategy Strategy, data []byte) []byte {
	t.Helper()
	var s Stream
	if c := s.InitDeflate(level, strategy); c < 0 {
		t.Fatalf("InitDeflate: %s", s.Msg)
	}
	var out bytes.Buffer
	buf := make([]byte, 64)
	s.NextIn = data
	for {
		s.NextOut = buf[:]
		flush := NoFlush
		if s.AvailIn() == 0 {
			flush = Finish
		}
		code := s.Step(flush)
		out.Write(buf[:len(buf)-len(s.NextOut)])
		if code == StreamEnd {
			break
		}
		if code < 0 {
			t.Fatalf("Step: %s", s.Msg)
		}
	}
	return out.Bytes()
}

func inflateAll(t *testing.T, compressed []byte) []byte {
	t.Helper()
	var s Stream
	s.InitInflate()
	var out bytes.Buffer
	buf := make([]byte, 64)
	s.NextIn = compressed
	for {
		s.NextOut = buf[:]
		code := s.Step(NoFlush)
		out.Write(buf[:len(buf)-len(s.NextOut)])
		if code == StreamEnd {
			break
		}
		if code < 0 {
			t.Fatalf("Step: %s", s.Msg)
		}
	}
	return out.Bytes()
}

func TestRoundTripLevels(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 200)
	for level := NoCompression; level <= BestCompression; level++ {
		compressed := deflateAll(t, level, Default, data)
		got := inflateAll(t, compressed)
		if !bytes.Equal(got, data) {
			t.Errorf("level %d: round trip mismatch (got %d bytes, want %d)", level, len(got), len(data))
		}
	}
}

func TestRoundTripStrategies(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 5000)
	for _, strat := range []Strategy{Default, Filtered, HuffmanOnly, RLE, Fixed} {
		compressed := deflateAll(t, DefaultCompression, strat, data)
		got := inflateAll(t, compressed)
		if !bytes.Equal(got, data) {
			t.Errorf("strategy %d: round trip mismatch", strat)
		}
	}
}

func TestRoundTripEmpty(t *testing.T) {
	compressed := deflateAll(t, DefaultCompression, Default, nil)
	got := inflateAll(t, compressed)
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d bytes", len(got))
	}
}

func TestSyncFlushResync(t *testing.T) {
	var s Stream
	s.InitDeflate(DefaultCompression, Default)
	var compressed bytes.Buffer
	buf := make([]byte, 64)

	first := []byte("first chunk of data before the sync marker")
	s.NextIn = first
	for s.AvailIn() > 0 {
		s.NextOut = buf[:]
		s.Step(NoFlush)
		compressed.Write(buf[:len(buf)-len(s.NextOut)])
	}
	for {
		s.NextOut = buf[:]
		code := s.Step(SyncFlush)
		compressed.Write(buf[:len(buf)-len(s.NextOut)])
		if code != StreamOK || len(buf)-len(s.NextOut) == 0 {
			break
		}
	}
	markerEnd := compressed.Len()

	second := []byte("second chunk after the sync marker")
	s.NextIn = second
	for s.AvailIn() > 0 {
		s.NextOut = buf[:]
		s.Step(NoFlush)
		compressed.Write(buf[:len(buf)-len(s.NextOut)])
	}
	for {
		s.NextOut = buf[:]
		code := s.Step(Finish)
		compressed.Write(buf[:len(buf)-len(s.NextOut)])
		if code == StreamEnd {
			break
		}
	}

	var ds Stream
	ds.InitInflate()
	ds.NextIn = compressed.Bytes()[:markerEnd]
	var out bytes.Buffer
	for ds.AvailIn() > 0 {
		ds.NextOut = buf[:]
		ds.Step(NoFlush)
		out.Write(buf[:len(buf)-len(ds.NextOut)])
	}
	if !bytes.Equal(out.Bytes(), first) {
		t.Fatalf("expected to decode first chunk before sync, got %q", out.Bytes())
	}

	// Rescan from the marker's trailing 00 00 FF FF, which Sync must find
	// and skip, leaving the decoder at the second chunk's first block.
	ds.NextIn = compressed.Bytes()[markerEnd-4:]
	if code := ds.Sync(); code != StreamOK {
		t.Fatalf("Sync: code %d, msg %q", code, ds.Msg)
	}
	out.Reset()
	for {
		ds.NextOut = buf[:]
		code := ds.Step(NoFlush)
		out.Write(buf[:len(buf)-len(ds.NextOut)])
		if code == StreamEnd {
			break
		}
		if code < 0 {
			t.Fatalf("Step after Sync: %s", ds.Msg)
		}
	}
	if !bytes.Equal(out.Bytes(), second) {
		t.Errorf("expected to decode second chunk after resync, got %q, want %q", out.Bytes(), second)
	}
}

func TestInflateStoredBlockLengthMismatch(t *testing.T) {
	// A stored block (BFINAL=1, BTYPE=00) whose LEN/NLEN fields don't
	// satisfy NLEN == ^LEN, which must be rejected as a data error.
	bad := []byte{0x01, 0x05, 0x00, 0x05, 0x00, 'h', 'e', 'l', 'l', 'o'}
	var s Stream
	s.InitInflate()
	s.NextIn = bad
	buf := make([]byte, 64)
	s.NextOut = buf[:]
	code := s.Step(NoFlush)
	if code != DataError {
		t.Errorf("Step = %d, want DataError; msg=%q", code, s.Msg)
	}
}

// feedDataType pushes data through a deflate Stream with NoFlush, enough to
// have the compressor classify it, without finishing the stream.
func feedDataType(s *Stream, data []byte) {
	buf := make([]byte, 64)
	s.NextIn = data
	for s.AvailIn() > 0 {
		s.NextOut = buf[:]
		s.Step(NoFlush)
	}
}

func TestDataTypeHeuristic(t *testing.T) {
	var textStream Stream
	textStream.InitDeflate(DefaultCompression, Default)
	feedDataType(&textStream, []byte("plain ASCII text with newlines\nand tabs\t.\n"))
	if got := textStream.DataType(); got != TextType {
		t.Errorf("DataType = %v, want TextType", got)
	}

	var binStream Stream
	binStream.InitDeflate(DefaultCompression, Default)
	feedDataType(&binStream, bytes.Repeat([]byte{0x00, 0x01, 0x02, 0x7f}, 64))
	if got := binStream.DataType(); got != BinaryType {
		t.Errorf("DataType = %v, want BinaryType", got)
	}

	var freshStream Stream
	freshStream.InitDeflate(DefaultCompression, Default)
	if got := freshStream.DataType(); got != UnknownType {
		t.Errorf("DataType of an untouched stream = %v, want UnknownType", got)
	}

	var inflateStream Stream
	inflateStream.InitInflate()
	if got := inflateStream.DataType(); got != UnknownType {
		t.Errorf("DataType of an inflate stream = %v, want UnknownType", got)
	}
}

func TestMaxCompressedSize(t *testing.T) {
	if got := MaxCompressedSize(0); got < 13 {
		t.Errorf("MaxCompressedSize(0) = %d, want at least 13", got)
	}
	data := bytes.Repeat([]byte{0x01, 0x02, 0x03}, 10000)
	compressed := deflateAll(t, BestCompression, Default, data)
	if bound := MaxCompressedSize(len(data)); len(compressed) > bound {
		t.Errorf("compressed size %d exceeds MaxCompressedSize bound %d", len(compressed), bound)
	}
}

func TestInflateBackRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("back-reference heavy payload, back-reference heavy payload "), 100)

	var s Stream
	s.InitDeflate(DefaultCompression, Default)
	var compressed bytes.Buffer
	buf := make([]byte, 64)
	s.NextIn = data
	for {
		s.NextOut = buf[:]
		flush := NoFlush
		if s.AvailIn() == 0 {
			flush = Finish
		}
		code := s.Step(flush)
		compressed.Write(buf[:len(buf)-len(s.NextOut)])
		if code == StreamEnd {
			break
		}
	}

	in := compressed.Bytes()
	pulled := false
	var out bytes.Buffer
	code := InflateBack(
		func() ([]byte, error) {
			if pulled {
				return nil, bytes.ErrTooLarge
			}
			pulled = true
			return in, nil
		},
		func(p []byte) error {
			out.Write(p)
			return nil
		},
	)
	if code != StreamEnd {
		t.Fatalf("InflateBack = %d", code)
	}
	if !bytes.Equal(out.Bytes(), data) {
		t.Errorf("InflateBack round trip mismatch (got %d bytes, want %d)", out.Len(), len(data))
	}
}
