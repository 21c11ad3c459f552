package zlib

import (
	"bytes"
	"io"
	"io/ioutil"
	"testing"

	"github.com/neacsum/zlib/flate"
)

func TestEmptyStreamVector(t *testing.T) {
	// The canonical empty zlib stream at DefaultCompression: 2-byte header,
	// an empty fixed-Huffman final block, and the Adler-32 of nothing (1).
	want := []byte{0x78, 0x9c, 0x03, 0x00, 0x00, 0x00, 0x00, 0x01}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("empty stream = % x, want % x", buf.Bytes(), want)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no decompressed bytes, got %d", len(got))
	}
}

func TestRoundTrip(t *testing.T) {
	var data []byte
	for i := 0; i < 100; i++ {
		data = append(data, []byte("Hello, World!")...)
	}

	var buf bytes.Buffer
	w, err := NewWriterLevel(&buf, flate.BestCompression)
	if err != nil {
		t.Fatalf("NewWriterLevel: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch")
	}
}

func TestRoundTripWithDictionary(t *testing.T) {
	dict := []byte("common preset dictionary words")
	data := []byte("this uses some common preset dictionary words repeatedly")

	var buf bytes.Buffer
	w, err := NewWriterLevelDict(&buf, flate.DefaultCompression, dict)
	if err != nil {
		t.Fatalf("NewWriterLevelDict: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := NewReaderDict(bytes.NewReader(buf.Bytes()), nil); err != ErrDictionary {
		t.Errorf("expected ErrDictionary without the dictionary, got %v", err)
	}

	r, err := NewReaderDict(bytes.NewReader(buf.Bytes()), dict)
	if err != nil {
		t.Fatalf("NewReaderDict: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip with dictionary mismatch")
	}
}

func TestBadChecksum(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("some data"))
	w.Close()

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff

	r, err := NewReader(bytes.NewReader(corrupted))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = ioutil.ReadAll(r)
	if err != ErrChecksum {
		t.Errorf("expected ErrChecksum, got %v", err)
	}
}

func TestBadHeader(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0x78, 0x00}))
	if err != ErrHeader {
		t.Errorf("expected ErrHeader, got %v", err)
	}
}

func TestFlushResumes(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if _, err := w.Write([]byte("first part")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, err := w.Write([]byte("second part")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "first partsecond part" {
		t.Errorf("got %q", got)
	}
}

func TestDataTypeAndMaxCompressedSize(t *testing.T) {
	data := []byte("plain ASCII text written through a zlib Writer\n")

	var buf bytes.Buffer
	w := NewWriter(&buf)
	bound := w.MaxCompressedSize(len(data))
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := w.DataType(); got != flate.TextType {
		t.Errorf("DataType = %v, want TextType", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() > bound {
		t.Errorf("compressed size %d exceeds MaxCompressedSize bound %d", buf.Len(), bound)
	}

	dict := []byte("preset dictionary")
	dw, err := NewWriterLevelDict(ioutil.Discard, flate.DefaultCompression, dict)
	if err != nil {
		t.Fatalf("NewWriterLevelDict: %v", err)
	}
	if plain, withDict := NewWriter(ioutil.Discard).MaxCompressedSize(100), dw.MaxCompressedSize(100); withDict <= plain {
		t.Errorf("dictionary writer's bound %d should exceed plain writer's bound %d", withDict, plain)
	}
}

func TestTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Write([]byte("some data that compresses to more than zero bytes"))
	w.Close()

	truncated := buf.Bytes()[:len(buf.Bytes())-2]
	r, err := NewReader(bytes.NewReader(truncated))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	_, err = ioutil.ReadAll(r)
	if err == nil {
		t.Fatal("expected an error reading a truncated stream")
	}
	if err == io.EOF {
		t.Error("expected an unexpected-EOF style error, not io.EOF")
	}
}
