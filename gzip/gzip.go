// Package gzip implements reading and writing of gzip-wrapped DEFLATE
// streams, as specified in RFC 1952: a 10-byte fixed header, optional
// extra/name/comment/header-CRC fields, the raw DEFLATE payload, and a
// trailing little-endian CRC-32 plus uncompressed-length-mod-2^32.
//
// Unlike the classic gzip package this one's shape is adapted from (which
// layers an io.Reader directly over compress/flate), Reader and Writer here
// are thin wrappers around a flate.Stream handle, matching the cursor model
// the rest of this module uses.
package gzip

import (
	"errors"
	"io"
	"time"

	"github.com/neacsum/zlib/checksum"
	"github.com/neacsum/zlib/flate"
	"github.com/neacsum/zlib/internal/clog"
)

var log = clog.NewPackageLogger("gzip")

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8

	flagText    = 1 << 0
	flagHdrCrc  = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

var (
	// ErrChecksum is returned when a member's trailer CRC-32 doesn't match
	// what was actually decompressed. A mismatched length field is reported
	// by a separate "gzip: incorrect length check" error.
	ErrChecksum = errors.New("gzip: invalid checksum")
	// ErrHeader is returned when a member's header is malformed.
	ErrHeader = errors.New("gzip: invalid header")
)

// Header holds the per-member metadata fields RFC 1952 allows.
type Header struct {
	Comment string
	Extra   []byte
	ModTime time.Time
	Name    string
	OS      byte
}

// Reader is an io.Reader that decompresses a gzip stream. By default it
// transparently spans multiple concatenated members (RFC 1952's
// "multistream" convention); only the first member's Header is recorded.
type Reader struct {
	Header
	r           io.Reader
	stream      flate.Stream
	digest      checksum.CRC32
	size        uint32
	buf         [512]byte
	pending     []byte // trailer bytes already pulled from z.stream.NextIn
	err         error
	multistream bool
}

// NewReader creates a Reader reading the gzip stream r, reading and
// validating the first member's header.
func NewReader(r io.Reader) (*Reader, error) {
	z := &Reader{r: r, multistream: true}
	if err := z.readHeader(true); err != nil {
		return nil, err
	}
	return z, nil
}

// Multistream controls whether Read transparently continues into
// subsequent concatenated members once one ends; it is enabled by default.
func (z *Reader) Multistream(ok bool) {
	z.multistream = ok
}

// readFull fills p from z.pending first, then z.r, matching io.ReadFull's
// contract; it lets a trailer's lookahead bytes (already pulled out of a
// Step call's leftover NextIn) feed the next member's header without a
// second reader wrapped around the first.
func (z *Reader) readFull(p []byte) (int, error) {
	n := copy(p, z.pending)
	z.pending = z.pending[n:]
	if n == len(p) {
		return n, nil
	}
	m, err := io.ReadFull(z.r, p[n:])
	return n + m, err
}

func (z *Reader) readHeader(save bool) error {
	var hdr [10]byte
	if _, err := z.readFull(hdr[:]); err != nil {
		return err
	}
	if hdr[0] != gzipID1 || hdr[1] != gzipID2 || hdr[2] != gzipDeflate {
		return ErrHeader
	}
	flg := hdr[3]
	if save {
		z.ModTime = time.Unix(int64(le32(hdr[4:8])), 0)
		z.OS = hdr[9]
	}
	hdrDigest := checksum.NewCRC32(0)
	hdrDigest.Write(hdr[:])

	if flg&flagExtra != 0 {
		var lenBuf [2]byte
		if _, err := z.readFull(lenBuf[:]); err != nil {
			return err
		}
		hdrDigest.Write(lenBuf[:])
		n := int(le16(lenBuf[:]))
		data := make([]byte, n)
		if _, err := z.readFull(data); err != nil {
			return err
		}
		hdrDigest.Write(data)
		if save {
			z.Extra = data
		}
	}
	if flg&flagName != 0 {
		s, err := z.readString(&hdrDigest)
		if err != nil {
			return err
		}
		if save {
			z.Name = s
		}
	}
	if flg&flagComment != 0 {
		s, err := z.readString(&hdrDigest)
		if err != nil {
			return err
		}
		if save {
			z.Comment = s
		}
	}
	if flg&flagHdrCrc != 0 {
		var want [2]byte
		if _, err := z.readFull(want[:]); err != nil {
			return err
		}
		if le16(want[:]) != uint16(hdrDigest.Sum32()&0xffff) {
			return ErrHeader
		}
	}

	z.digest = checksum.NewCRC32(0)
	z.stream.InitInflate()
	log.Debugf("gzip: opened member, name=%q flg=%#x", z.Name, flg)
	return nil
}

func (z *Reader) readString(hdrDigest *checksum.CRC32) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := z.readFull(b[:]); err != nil {
			return "", err
		}
		hdrDigest.Write(b[:])
		if b[0] == 0 {
			break
		}
		buf = append(buf, b[0])
	}
	return string(buf), nil
}

func le16(p []byte) uint16 { return uint16(p[0]) | uint16(p[1])<<8 }
func le32(p []byte) uint32 {
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24
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
		if z.stream.AvailIn() == 0 && len(z.pending) > 0 {
			z.stream.NextIn, z.pending = z.pending, nil
		}
		if z.stream.AvailIn() == 0 {
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
		z.size += uint32(n)
		total += n
		switch code {
		case flate.StreamOK:
			if n == 0 && z.stream.AvailIn() == 0 {
				continue
			}
		case flate.StreamEnd:
			if err := z.finishMember(); err != nil {
				z.err = err
				return total, z.err
			}
			if !z.multistream {
				z.err = io.EOF
				return total, nil
			}
			if err := z.startNextMember(); err != nil {
				z.err = err
				if err == io.EOF {
					return total, nil
				}
				return total, z.err
			}
			continue
		default:
			z.err = errors.New("gzip: " + z.stream.Msg)
			return total, z.err
		}
		if total > 0 {
			return total, nil
		}
	}
	return total, nil
}

// finishMember reads and validates the 8-byte trailer following the member
// Step just finished decoding. Any bytes Step's last call had already
// pulled into NextIn beyond what the trailer needs belong to the next
// member's header, so they are saved into z.pending rather than consumed.
func (z *Reader) finishMember() error {
	avail := z.stream.NextIn
	z.stream.NextIn = nil
	var trailer [8]byte
	if _, err := z.readFromAvail(avail, trailer[:]); err != nil {
		return err
	}
	wantCRC := le32(trailer[0:4])
	wantLen := le32(trailer[4:8])
	if z.digest.Sum32() != wantCRC {
		return ErrChecksum
	}
	if z.size != wantLen {
		return errors.New("gzip: incorrect length check")
	}
	return nil
}

// readFromAvail fills p from avail first (pushing any of avail's unused
// tail into z.pending for the next read), then from z.r.
func (z *Reader) readFromAvail(avail, p []byte) (int, error) {
	n := copy(p, avail)
	if n < len(avail) {
		z.pending = append(z.pending, avail[n:]...)
	}
	if n == len(p) {
		return n, nil
	}
	m, err := io.ReadFull(z.r, p[n:])
	return n + m, err
}

// startNextMember probes for another concatenated member; io.EOF here means
// the file legitimately ended after the last trailer.
func (z *Reader) startNextMember() error {
	z.size = 0
	if len(z.pending) == 0 {
		var probe [1]byte
		n, err := io.ReadFull(z.r, probe[:])
		if n == 0 {
			if err == io.EOF {
				return io.EOF
			}
			return err
		}
		z.pending = probe[:n]
	}
	return z.readHeader(false)
}

// Writer compresses data into a gzip-wrapped stream, writing each newly
// constructed Writer as a fresh member.
type Writer struct {
	Header
	w        io.Writer
	level    flate.Level
	stream   flate.Stream
	digest   checksum.CRC32
	size     uint32
	buf      [4096]byte
	err      error
	wroteHdr bool
}

// NewWriter creates a Writer with the default compression level.
func NewWriter(w io.Writer) *Writer {
	zw, _ := NewWriterLevel(w, flate.DefaultCompression)
	return zw
}

// NewWriterLevel is like NewWriter but specifies the compression level.
func NewWriterLevel(w io.Writer, level flate.Level) (*Writer, error) {
	if level != flate.DefaultCompression && (level < 0 || level > 9) {
		return nil, errors.New("gzip: invalid compression level")
	}
	z := &Writer{w: w, level: level}
	z.digest = checksum.NewCRC32(0)
	z.stream.InitDeflate(level, flate.Default)
	return z, nil
}

func (z *Writer) writeHeader() error {
	if z.wroteHdr {
		return nil
	}
	z.wroteHdr = true

	flg := byte(0)
	if z.Extra != nil {
		flg |= flagExtra
	}
	if z.Name != "" {
		flg |= flagName
	}
	if z.Comment != "" {
		flg |= flagComment
	}

	var hdr [10]byte
	hdr[0], hdr[1], hdr[2] = gzipID1, gzipID2, gzipDeflate
	hdr[3] = flg
	mtime := uint32(0)
	if !z.Header.ModTime.IsZero() {
		mtime = uint32(z.Header.ModTime.Unix())
	}
	hdr[4], hdr[5], hdr[6], hdr[7] = byte(mtime), byte(mtime>>8), byte(mtime>>16), byte(mtime>>24)
	if z.level == flate.BestCompression {
		hdr[8] = 2
	} else if z.level == flate.BestSpeed {
		hdr[8] = 4
	}
	hdr[9] = 255 // unknown OS
	if _, err := z.w.Write(hdr[:]); err != nil {
		return err
	}

	if z.Extra != nil {
		var n [2]byte
		n[0], n[1] = byte(len(z.Extra)), byte(len(z.Extra)>>8)
		if _, err := z.w.Write(n[:]); err != nil {
			return err
		}
		if _, err := z.w.Write(z.Extra); err != nil {
			return err
		}
	}
	if z.Name != "" {
		if _, err := io.WriteString(z.w, z.Name); err != nil {
			return err
		}
		if _, err := z.w.Write([]byte{0}); err != nil {
			return err
		}
	}
	if z.Comment != "" {
		if _, err := io.WriteString(z.w, z.Comment); err != nil {
			return err
		}
		if _, err := z.w.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
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
	z.size += uint32(len(p))
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
		z.err = errors.New("gzip: " + z.stream.Msg)
		return z.err
	}
	return nil
}

// Flush flushes pending compressed data without ending the member, using a
// sync-flush marker a reader scanning for resync points can find.
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

// Close finishes the current member, appending its CRC-32/length trailer.
// It does not close the underlying io.Writer, so a caller may write another
// member by constructing a fresh Writer over the same io.Writer to build a
// multistream gzip file.
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
	var trailer [8]byte
	crc := z.digest.Sum32()
	trailer[0], trailer[1], trailer[2], trailer[3] = byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24)
	trailer[4], trailer[5], trailer[6], trailer[7] = byte(z.size), byte(z.size>>8), byte(z.size>>16), byte(z.size>>24)
	_, err := z.w.Write(trailer[:])
	return err
}

// DataType reports whether the bytes written so far look like text or
// binary data, per flate.Stream.DataType's heuristic.
func (z *Writer) DataType() flate.DataType {
	return z.stream.DataType()
}

// MaxCompressedSize returns a worst-case upper bound on the number of
// bytes Close will have written for n bytes of input: the fixed 10-byte
// header plus any EXTRA/NAME/COMMENT fields, flate's own worst case, and
// the 8-byte CRC-32/size trailer.
func (z *Writer) MaxCompressedSize(n int) int {
	extra := 10 + 8
	if z.Extra != nil {
		extra += 2 + len(z.Extra)
	}
	if z.Name != "" {
		extra += len(z.Name) + 1
	}
	if z.Comment != "" {
		extra += len(z.Comment) + 1
	}
	return extra + flate.MaxCompressedSize(n)
}
