// Copyright 2016 CoreOS, Inc
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command zlibtool compresses or decompresses one or more files
// concurrently, reporting live per-file progress, optionally driven by a
// YAML config file instead of (or alongside) command-line flags.
package main

import (
	"bytes"
	compressgzip "compress/gzip"
	compresszlib "compress/zlib"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/neacsum/zlib/flate"
	"github.com/neacsum/zlib/gzip"
	"github.com/neacsum/zlib/internal/clog"
	"github.com/neacsum/zlib/progressutil"
	"github.com/neacsum/zlib/stop"
	"github.com/neacsum/zlib/yamlutil"
	"github.com/neacsum/zlib/zlib"

	kflate "github.com/klauspost/compress/flate"
)

var log = clog.NewPackageLogger("zlibtool")

var (
	decompress = flag.Bool("d", false, "decompress instead of compress")
	toStdout   = flag.Bool("c", false, "write output to stdout instead of alongside the input file")
	level      = flag.Int("level", int(flate.DefaultCompression), "compression level, 0 (none) to 9 (best)")
	strategy   = flag.String("strategy", "default", "match strategy: default, filtered, huffman, rle, fixed")
	format     = flag.String("format", "gzip", "stream format: gzip, zlib, raw")
	config     = flag.String("config", "", "YAML file providing defaults for any flag not set on the command line")
	verify     = flag.Bool("verify", false, "after compressing, decompress the result with an independent decoder and compare against the input")
	quiet      = flag.Bool("quiet", false, "suppress progress bars")
	logLevel   = flag.String("log-level", "NOTICE", "log level: CRITICAL, ERROR, WARNING, NOTICE, INFO, DEBUG, TRACE")
)

func main() {
	flag.Parse()

	if *config != "" {
		raw, err := ioutil.ReadFile(*config)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zlibtool: %v\n", err)
			os.Exit(1)
		}
		if err := yamlutil.SetFlagsFromYaml(flag.CommandLine, raw); err != nil {
			fmt.Fprintf(os.Stderr, "zlibtool: %v\n", err)
			os.Exit(1)
		}
	}

	lvl, err := clog.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zlibtool: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(lvl)

	strat, err := parseStrategy(*strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zlibtool: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: zlibtool [flags] file...")
		os.Exit(2)
	}
	if *toStdout && len(args) > 1 {
		fmt.Fprintln(os.Stderr, "zlibtool: -c only supports a single input file")
		os.Exit(2)
	}

	// sg coordinates an early stop of the whole batch the moment any one
	// job's codec fails, so the user isn't left waiting out N-1 healthy
	// transfers just to learn the batch already lost.
	sg, cancel := stop.NewCancelGroup()

	cpp := progressutil.NewCopyProgressPrinter()
	jobs := make([]*job, 0, len(args))
	for _, path := range args {
		j, err := newJob(path, *decompress, *toStdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "zlibtool: %s: %v\n", path, err)
			os.Exit(1)
		}
		jobs = append(jobs, j)
		if err := cpp.AddCopy(j.pr, j.label, j.size, ioutil.Discard); err != nil {
			fmt.Fprintf(os.Stderr, "zlibtool: %v\n", err)
			os.Exit(1)
		}
		j.start(flate.Level(*level), strat, sg)
	}

	progressOut := io.Writer(os.Stderr)
	if *quiet {
		progressOut = ioutil.Discard
	}
	if err := cpp.PrintAndWait(progressOut, 200*time.Millisecond, cancel); err != nil {
		fmt.Fprintf(os.Stderr, "zlibtool: %v\n", err)
		closeJobs(jobs)
		os.Exit(1)
	}

	failed := false
	for _, j := range jobs {
		if err := j.wait(); err != nil {
			fmt.Fprintf(os.Stderr, "zlibtool: %s: %v\n", j.label, err)
			failed = true
			continue
		}
		if *verify && !j.decompress && !j.stdout {
			if err := verifyCompressed(j.outPath, j.inPath); err != nil {
				fmt.Fprintf(os.Stderr, "zlibtool: %s: verify failed: %v\n", j.label, err)
				failed = true
			} else {
				log.Infof("%s: verify ok", j.label)
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

func parseStrategy(s string) (flate.Strategy, error) {
	switch strings.ToLower(s) {
	case "default", "":
		return flate.Default, nil
	case "filtered":
		return flate.Filtered, nil
	case "huffman":
		return flate.HuffmanOnly, nil
	case "rle":
		return flate.RLE, nil
	case "fixed":
		return flate.Fixed, nil
	default:
		return flate.Default, fmt.Errorf("unknown strategy %q", s)
	}
}

// job drives one input file through the codec concurrently with every
// other job's codec, piping its output through pr/pw so
// progressutil.CopyProgressPrinter can track real bytes produced rather
// than bytes read from the input (which for compression tells the user
// almost nothing about how much work remains).
type job struct {
	label      string
	inPath     string
	outPath    string
	size       int64
	in         *os.File
	pr         *io.PipeReader
	pw         *io.PipeWriter
	stdout     bool
	decompress bool
	errc       chan error
}

func newJob(path string, decompress, stdout bool) (*job, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := in.Stat()
	if err != nil {
		in.Close()
		return nil, err
	}
	pr, pw := io.Pipe()
	return &job{
		label:      path,
		inPath:     path,
		outPath:    outputPath(path, decompress),
		size:       fi.Size(),
		in:         in,
		pr:         pr,
		pw:         pw,
		stdout:     stdout,
		decompress: decompress,
		errc:       make(chan error, 1),
	}, nil
}

func outputPath(path string, decompress bool) string {
	if decompress {
		if strings.HasSuffix(path, ".gz") {
			return strings.TrimSuffix(path, ".gz")
		}
		if strings.HasSuffix(path, ".z") {
			return strings.TrimSuffix(path, ".z")
		}
		return path + ".out"
	}
	return path + ".gz"
}

func closeJobs(jobs []*job) {
	for _, j := range jobs {
		j.in.Close()
		j.pw.Close()
	}
}

// start launches the goroutine that runs j's codec, writing every
// produced byte both to the real destination and to j.pw so the
// progress printer's copy of j.pr reflects genuine progress. A codec
// failure stops sg, which in turn cancels the whole batch's progress
// display rather than leaving it to grind through the remaining jobs.
func (j *job) start(level flate.Level, strat flate.Strategy, sg *stop.Group) {
	go func() {
		defer j.in.Close()
		defer j.pw.Close()

		var dst io.Writer = ioutil.Discard
		var f *os.File
		if j.stdout {
			dst = os.Stdout
		} else {
			var err error
			f, err = os.Create(j.outPath)
			if err != nil {
				j.errc <- err
				sg.Stop()
				return
			}
			dst = f
		}
		w := io.MultiWriter(dst, j.pw)
		err := runCodec(j.in, w, j.decompress, level, strat)
		if f != nil {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		j.errc <- err
		if err != nil {
			sg.Stop()
		}
	}()
}

// wait blocks until j's codec goroutine finishes and returns its result.
// It must be called exactly once, after PrintAndWait has drained j.pr
// (otherwise the codec goroutine can block forever writing to a pipe
// nobody is reading).
func (j *job) wait() error {
	return <-j.errc
}

func runCodec(r io.Reader, w io.Writer, decompress bool, level flate.Level, strat flate.Strategy) error {
	if decompress {
		return decodeStream(r, w)
	}
	return encodeStream(r, w, level, strat)
}

func encodeStream(r io.Reader, w io.Writer, level flate.Level, strat flate.Strategy) error {
	switch *format {
	case "zlib":
		zw, err := zlib.NewWriterLevel(w, level)
		if err != nil {
			return err
		}
		if _, err := io.Copy(zw, r); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	case "raw":
		var s flate.Stream
		if s.InitDeflate(level, strat) < 0 {
			return fmt.Errorf("raw: %s", s.Msg)
		}
		return drainRaw(&s, r, w)
	default:
		gw, err := gzip.NewWriterLevel(w, level)
		if err != nil {
			return err
		}
		if _, err := io.Copy(gw, r); err != nil {
			gw.Close()
			return err
		}
		return gw.Close()
	}
}

func decodeStream(r io.Reader, w io.Writer) error {
	switch *format {
	case "zlib":
		zr, err := zlib.NewReader(r)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, zr)
		return err
	case "raw":
		var s flate.Stream
		s.InitInflate()
		return inflateRaw(&s, r, w)
	default:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, gr)
		return err
	}
}

func drainRaw(s *flate.Stream, r io.Reader, w io.Writer) error {
	var in, out [4096]byte
	eof := false
	for {
		if s.AvailIn() == 0 && !eof {
			n, err := r.Read(in[:])
			if n > 0 {
				s.NextIn = in[:n]
			}
			if err == io.EOF {
				eof = true
			} else if err != nil {
				return err
			}
		}
		s.NextOut = out[:]
		flush := flate.NoFlush
		if eof && s.AvailIn() == 0 {
			flush = flate.Finish
		}
		code := s.Step(flush)
		if n := len(out) - len(s.NextOut); n > 0 {
			if _, err := w.Write(out[:n]); err != nil {
				return err
			}
		}
		if code == flate.StreamEnd {
			return nil
		}
		if code < 0 {
			return fmt.Errorf("raw deflate: %s", s.Msg)
		}
	}
}

func inflateRaw(s *flate.Stream, r io.Reader, w io.Writer) error {
	var in, out [4096]byte
	for {
		if s.AvailIn() == 0 {
			n, err := r.Read(in[:])
			if n > 0 {
				s.NextIn = in[:n]
			}
			if err != nil && err != io.EOF {
				return err
			}
			if n == 0 && err == io.EOF {
				return io.ErrUnexpectedEOF
			}
		}
		s.NextOut = out[:]
		code := s.Step(flate.NoFlush)
		if n := len(out) - len(s.NextOut); n > 0 {
			if _, err := w.Write(out[:n]); err != nil {
				return err
			}
		}
		if code == flate.StreamEnd {
			return nil
		}
		if code < 0 {
			return fmt.Errorf("raw inflate: %s", s.Msg)
		}
	}
}

// verifyCompressed decompresses outPath with an independent decoder —
// klauspost/compress's flate for the raw format, the standard library's
// compress/gzip or compress/zlib otherwise — and compares the result
// byte-for-byte against inPath, so a bug shared between this module's own
// Writer and Reader can't pass undetected the way a round-trip against
// only this module's own Reader would.
func verifyCompressed(outPath, inPath string) error {
	f, err := os.Open(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var rc io.ReadCloser
	switch *format {
	case "zlib":
		rc, err = compresszlib.NewReader(f)
	case "raw":
		rc = kflate.NewReader(f)
	default:
		rc, err = compressgzip.NewReader(f)
	}
	if err != nil {
		return err
	}
	defer rc.Close()

	got, err := ioutil.ReadAll(rc)
	if err != nil {
		return err
	}
	want, err := ioutil.ReadFile(inPath)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want) {
		return fmt.Errorf("decompressed output does not match original")
	}
	return nil
}
