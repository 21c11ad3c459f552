// Package flate implements the raw DEFLATE compressed data format described
// in RFC 1951, exposing it through a zlib-style step-driven Stream handle
// rather than an io.Reader/io.Writer pipe: callers push input and pull
// output through cursors on their own buffers, one Step call at a time, so a
// stream can suspend and resume across arbitrarily small reads and writes.
package flate

import "github.com/neacsum/zlib/internal/clog"

var log = clog.NewPackageLogger("flate")

// Flush controls how eagerly a deflate Stream emits output, mirroring
// zlib's flush parameter to deflate().
type Flush int

const (
	// NoFlush lets the encoder buffer input until it has enough to make
	// good compression decisions.
	NoFlush Flush = iota
	// PartialFlush is kept for parity with zlib's flush values; the
	// encoder handles it exactly like NoFlush and emits nothing extra.
	PartialFlush
	// SyncFlush flushes all pending output to a byte boundary, in a form
	// the inflate side can resynchronize on, by emitting an empty stored
	// block (00 00 00 FF FF after byte-alignment).
	SyncFlush
	// FullFlush is like SyncFlush but also resets the match-finder's
	// history, so that a transmission error before this point cannot
	// affect decoding of data after it.
	FullFlush
	// Finish tells the encoder this is the last chunk of input; it
	// finishes the current block, appends the end-of-block marker, pads
	// to a byte boundary and returns StreamEnd once all output has
	// drained.
	Finish
	// Block requests the encoder stop as soon as it has completed an
	// internal block, which Step then reports via StreamOK, allowing
	// the caller to inspect per-block boundaries.
	Block
	// Trees is kept for parity with zlib's flush values; the encoder
	// handles it exactly like Block, and the decoder does not stop early
	// for it.
	Trees
)

// Code is the step result returned by a Stream, mirroring zlib's integer
// return codes from deflate()/inflate().
type Code int

const (
	StreamEnd    Code = 1
	StreamOK     Code = 0
	NeedDict     Code = 2
	Errno        Code = -1
	StreamError  Code = -2
	DataError    Code = -3
	MemError     Code = -4
	BufError     Code = -5
	VersionError Code = -6
)

// message gives the zlib-style short text for a Code, used by Code.Error.
func (c Code) message() string {
	switch c {
	case Errno:
		return "file error"
	case StreamEnd:
		return "stream end"
	case StreamOK:
		return ""
	case NeedDict:
		return "need dictionary"
	case StreamError:
		return "stream error"
	case DataError:
		return "data error"
	case MemError:
		return "insufficient memory"
	case BufError:
		return "buffer error"
	case VersionError:
		return "incompatible version"
	}
	return "unknown error"
}

func (c Code) Error() string { return c.message() }

// Strategy tunes the match finder's bias toward particular kinds of data,
// mirroring zlib's deflate strategy constants.
type Strategy int

const (
	// Default runs the full lazy-match search.
	Default Strategy = iota
	// Filtered is tuned for data produced by a filter (predictor), which
	// tends to generate small values with a somewhat random distribution:
	// matches of 5 bytes or fewer are dropped, so those bytes are Huffman
	// coded as literals instead.
	Filtered
	// HuffmanOnly disables LZ77 matching entirely; every input byte is
	// coded as a Huffman literal.
	HuffmanOnly
	// RLE limits matches to distance 1 (run-length style), which is
	// faster and nearly as good as Default for data dominated by runs of
	// identical bytes (e.g. PNG rows after certain filters).
	RLE
	// Fixed forces the fixed Huffman tables rather than building dynamic
	// ones, trading ratio for speed and for a simpler, more predictable
	// encoder (useful for tiny inputs where the dynamic tree's own
	// overhead would dominate).
	Fixed
)

// Level selects a deflate compression level, 0 through 9, plus the two
// named aliases zlib defines.
type Level int

const (
	NoCompression      Level = 0
	BestSpeed          Level = 1
	BestCompression    Level = 9
	DefaultCompression Level = -1
)

// DataType classifies a deflate Writer's input, mirroring zlib's
// Z_BINARY/Z_TEXT/Z_UNKNOWN data_type hint.
type DataType int

const (
	UnknownType DataType = iota
	BinaryType
	TextType
)

func (d DataType) String() string {
	switch d {
	case BinaryType:
		return "binary"
	case TextType:
		return "text"
	default:
		return "unknown"
	}
}
