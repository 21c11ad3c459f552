// Package zlib implements reading and writing of zlib-wrapped DEFLATE
// streams, as specified in RFC 1950: a 2-byte CMF/FLG header, optionally
// followed by a 4-byte big-endian Adler-32 of a preset dictionary, the raw
// DEFLATE payload, and a trailing big-endian Adler-32 of the uncompressed
// data.
package zlib

import (
	"errors"
	"io"

	"github.com/neacsum/zlib/checksum"
	"github.com/neacsum/zlib/flate"
	"github.com/neacsum/zlib/internal/clog"
)

var log = clog.NewPackageLogger("zlib")

var (
	ErrHeader     = errors.New("zlib: invalid header")
	ErrChecksum   = errors.New("zlib: incorrect data check")
	ErrDictionary = errors.New("zlib: invalid dictionary")
)

const (
	zlibDeflate = 8 // CM = 8 is the only compression method RFC 1950 defines
	maxFCheck   = 31
)

// Reader is an io.Reader that decompresses a zlib stream, verifying the
// Adler-32 trailer once the stream's logical end is reached.
type Reader struct {
	r       io.Reader
	stream  flate.Stream
	digest  checksum.Adler32
	dictID  uint32
	needDict bool
	buf     [512]byte
	bufN    int
	err     error
	done    bool
}

// NewReader creates a Reader reading the zlib stream r.
func NewReader(r io.Reader) (*Reader, error) {
	return NewReaderDict(r, nil)
}

// NewReaderDict is like NewReader, but uses dict as the preset dictionary,
// required when the stream's FDICT bit was set by the writer and dict's
// Adler-32 matches the stream's embedded dictionary ID.
func NewReaderDict(r io.Reader, dict []byte) (*Reader, error) {
	z := &Reader{r: r}
	var hdr [2]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	cmf, flg := hdr[0], hdr[1]
	if cmf&0x0f != zlibDeflate {
		return nil, ErrHeader
	}
	if (uint(cmf)<<8+uint(flg))%31 != 0 {
		return nil, ErrHeader
	}
	if flg&0x20 != 0 {
		var id [4]byte
		if _, err := io.ReadFull(r, id[:]); err != nil {
			return nil, err
		}
		z.dictID = be32(id[:])
		z.needDict = true
	}
	if z.needDict {
		if dict == nil {
			return nil, ErrDictionary
		}
		if checksum.Adler32Checksum(0, dict) != z.dictID {
			return nil, ErrDictionary
		}
		z.stream.InitInflateDict(dict)
	} else {
		z.stream.InitInflate()
	}
	z.digest = checksum.NewAdler32(0)
	log.Debugf("zlib: opened stream, FDICT=%v", z.needDict)
	return z, nil
}

func be32(p []byte) uint32 {
	return uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3])
}

func (z *Reader) Read(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	total := 0
	for total == 0 {
		if z.stream.AvailIn() == 0 && !z.done {
			n, err := z.r.Read(z.buf[:])
			if n > 0 {
				z.stream.NextIn = z.buf[:n]
			}
			if err != nil && err != io.EOF {
				z.err = err
				return total, z.err
			}
			if n == 0 && err == io.EOF {
				z.err = io.ErrUnexpectedEOF
				return total, z.err
			}
		}
		z.stream.NextOut = p[total:]
		code := z.stream.Step(flate.NoFlush)
		n := len(p[total:]) - len(z.stream.NextOut)
		z.digest.Write(p[total : total+n])
		total += n
		switch code {
		case flate.StreamOK:
			if n == 0 && z.stream.AvailIn() == 0 {
				continue
			}
		case flate.StreamEnd:
			z.done = true
			if err := z.readTrailer(); err != nil {
				z.err = err
				return total, z.err
			}
			z.err = io.EOF
			return total, nil
		default:
			z.err = errors.New("zlib: " + z.stream.Msg)
			return total, z.err
		}
		if total > 0 {
			return total, nil
		}
	}
	return total, nil
}

func (z *Reader) readTrailer() error {
	var trailer [4]byte
	n := copy(trailer[:], z.stream.NextIn)
	if n < 4 {
		if _, err := io.ReadFull(z.r, trailer[n:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
	}
	want := be32(trailer[:])
	if z.digest.Sum32() != want {
		return ErrChecksum
	}
	return nil
}

// Writer compresses data at the given level, writing a zlib-framed stream
// to the underlying io.Writer.
type Writer struct {
	w      io.Writer
	stream flate.Stream
	digest checksum.Adler32
	buf    [4096]byte
	dict   []byte
	level  flate.Level
	err    error
	wroteHdr bool
}

// NewWriter creates a Writer with the default compression level.
func NewWriter(w io.Writer) *Writer {
	zw, _ := NewWriterLevel(w, flate.DefaultCompression)
	return zw
}

// NewWriterLevel is like NewWriter but specifies the compression level.
func NewWriterLevel(w io.Writer, level flate.Level) (*Writer, error) {
	return NewWriterLevelDict(w, level, nil)
}

// NewWriterLevelDict is like NewWriterLevel but primes the stream with a
// preset dictionary, setting FDICT and prefixing the dictionary's Adler-32
// after the header, per RFC 1950 §2.4.
func NewWriterLevelDict(w io.Writer, level flate.Level, dict []byte) (*Writer, error) {
	if level != flate.DefaultCompression && (level < 0 || level > 9) {
		return nil, errors.New("zlib: invalid compression level")
	}
	zw := &Writer{w: w, dict: dict, level: level}
	zw.digest = checksum.NewAdler32(0)
	if dict != nil {
		zw.stream.InitDeflateDict(level, flate.Default, dict)
	} else {
		zw.stream.InitDeflate(level, flate.Default)
	}
	return zw, nil
}

func (z *Writer) writeHeader() error {
	if z.wroteHdr {
		return nil
	}
	z.wroteHdr = true
	cmf := byte(zlibDeflate | (7 << 4)) // CINFO=7: 32K window, the only size flate.Stream ever uses
	var flg byte
	switch level := z.level; { // FLEVEL, as zlib sets it
	case level == flate.DefaultCompression || level == 6:
		flg = 2 << 6
	case level < 2:
	case level < 6:
		flg = 1 << 6
	default:
		flg = 3 << 6
	}
	if z.dict != nil {
		flg |= 0x20
	}
	check := (uint(cmf)<<8 + uint(flg)) % 31
	if check != 0 {
		flg += byte(31 - check)
	}
	if _, err := z.w.Write([]byte{cmf, flg}); err != nil {
		return err
	}
	if z.dict != nil {
		id := checksum.Adler32Checksum(0, z.dict)
		if _, err := z.w.Write(be32Bytes(id)); err != nil {
			return err
		}
	}
	return nil
}

func be32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func (z *Writer) Write(p []byte) (int, error) {
	if z.err != nil {
		return 0, z.err
	}
	if err := z.writeHeader(); err != nil {
		z.err = err
		return 0, err
	}
	z.digest.Write(p)
	z.stream.NextIn = p
	for z.stream.AvailIn() > 0 {
		if err := z.drain(flate.NoFlush); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (z *Writer) drain(flush flate.Flush) error {
	z.stream.NextOut = z.buf[:]
	code := z.stream.Step(flush)
	n := len(z.buf) - len(z.stream.NextOut)
	if n > 0 {
		if _, err := z.w.Write(z.buf[:n]); err != nil {
			z.err = err
			return err
		}
	}
	if code < 0 {
		z.err = errors.New("zlib: " + z.stream.Msg)
		return z.err
	}
	return nil
}

// Flush flushes pending compressed data to the underlying writer without
// ending the stream, using a sync-flush marker the reader can resynchronize on.
func (z *Writer) Flush() error {
	if err := z.writeHeader(); err != nil {
		return err
	}
	for {
		z.stream.NextOut = z.buf[:]
		code := z.stream.Step(flate.SyncFlush)
		n := len(z.buf) - len(z.stream.NextOut)
		if n > 0 {
			if _, err := z.w.Write(z.buf[:n]); err != nil {
				return err
			}
		}
		if code != flate.StreamOK || n == 0 {
			break
		}
	}
	return nil
}

// Close finishes the stream, flushing any buffered data and appending the
// big-endian Adler-32 trailer. It does not close the underlying io.Writer.
func (z *Writer) Close() error {
	if z.err != nil {
		return z.err
	}
	if err := z.writeHeader(); err != nil {
		return err
	}
	for {
		if err := z.drain(flate.Finish); err != nil {
			return err
		}
		if z.stream.AvailOut() > 0 {
			break
		}
	}
	_, err := z.w.Write(be32Bytes(z.digest.Sum32()))
	return err
}

// DataType reports whether the bytes written so far look like text or
// binary data, per flate.Stream.DataType's heuristic.
func (z *Writer) DataType() flate.DataType {
	return z.stream.DataType()
}

// MaxCompressedSize returns a worst-case upper bound on the number of
// bytes Close will have written for n bytes of input: the 2-byte header
// (plus a 4-byte dictionary ID if a preset dictionary is set), flate's
// own worst case, and the 4-byte Adler-32 trailer.
func (z *Writer) MaxCompressedSize(n int) int {
	extra := 2 + 4
	if z.dict != nil {
		extra += 4
	}
	return extra + flate.MaxCompressedSize(n)
}
