// Copyright 2016 CoreOS Inc
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

// Package progressutil renders live progress bars for one or more
// concurrent io.Copy-style transfers, the way zlibtool reports per-file
// compress/decompress progress to a terminal.
package progressutil

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyStarted is returned by AddCopy or PrintAndWait once
// PrintAndWait has already begun for this CopyProgressPrinter.
var ErrAlreadyStarted = errors.New("progressutil: printer already started")

// ByteUnitStr formats n bytes using the largest binary unit (B/KB/MB/GB/TB)
// that keeps at least one whole digit before the decimal point.
func ByteUnitStr(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}

type copyJob struct {
	label  string
	total  int64
	copied int64
	r      io.Reader
	w      io.Writer
}

// run copies j.r to j.w to completion, reporting its outcome on results
// (shared across all jobs of one PrintAndWait call, so the caller can fan
// in with a single receive instead of juggling one channel per job).
func (j *copyJob) run(results chan<- error) {
	buf := make([]byte, 32*1024)
	var err error
	for {
		n, rerr := j.r.Read(buf)
		if n > 0 {
			if _, werr := j.w.Write(buf[:n]); werr != nil {
				err = werr
				break
			}
			atomic.AddInt64(&j.copied, int64(n))
		}
		if rerr != nil {
			if rerr != io.EOF {
				err = rerr
			}
			break
		}
	}
	results <- err
}

// CopyProgressPrinter runs a set of io.Copy jobs concurrently, each
// reporting its own progress bar to a shared terminal output via
// PrintAndWait.
type CopyProgressPrinter struct {
	mu      sync.Mutex
	jobs    []*copyJob
	started bool
}

// NewCopyProgressPrinter creates an empty CopyProgressPrinter.
func NewCopyProgressPrinter() *CopyProgressPrinter {
	return &CopyProgressPrinter{}
}

// AddCopy registers a copy from r to w, labeled label, with a known total
// size used to compute percent-complete; it may only be called before
// PrintAndWait starts.
func (cpp *CopyProgressPrinter) AddCopy(r io.Reader, label string, size int64, w io.Writer) error {
	cpp.mu.Lock()
	defer cpp.mu.Unlock()
	if cpp.started {
		return ErrAlreadyStarted
	}
	cpp.jobs = append(cpp.jobs, &copyJob{label: label, total: size, r: r, w: w})
	return nil
}

// PrintAndWait launches every registered copy concurrently, redrawing all
// progress bars to out every interval, until all copies finish or cancel is
// signaled; a failed copy does not stop the others. It returns the first
// copy error encountered, if any (nil when cancelled).
func (cpp *CopyProgressPrinter) PrintAndWait(out io.Writer, interval time.Duration, cancel <-chan struct{}) error {
	cpp.mu.Lock()
	if cpp.started {
		cpp.mu.Unlock()
		return ErrAlreadyStarted
	}
	cpp.started = true
	jobs := cpp.jobs
	cpp.mu.Unlock()

	results := make(chan error, len(jobs))
	for _, j := range jobs {
		go j.run(results)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	linesDrawn := 0
	draw := func() {
		if linesDrawn > 0 {
			fmt.Fprintf(out, "\033[%dA", linesDrawn)
		}
		for _, j := range jobs {
			copied := atomic.LoadInt64(&j.copied)
			frac := 0.0
			if j.total > 0 {
				frac = float64(copied) / float64(j.total)
			}
			sizeStr := ByteUnitStr(copied) + " / " + ByteUnitStr(j.total)
			fmt.Fprintln(out, renderProgressBar(80, j.label, frac, sizeStr))
		}
		linesDrawn = len(jobs)
	}

	draw()
	remaining := len(jobs)
	var firstErr error
	for remaining > 0 {
		select {
		case <-ticker.C:
			draw()
		case <-cancel:
			return nil
		case err := <-results:
			remaining--
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	draw()
	return firstErr
}

// renderProgressBar draws one label/bar/size line sized to width columns,
// e.g. "download [=====>     ] 10.0KB / 20.0KB".
func renderProgressBar(width int, label string, frac float64, sizeStr string) string {
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	suffix := " " + sizeStr
	prefix := label + " ["
	barWidth := width - len(prefix) - len("]") - len(suffix)
	if barWidth < 1 {
		barWidth = 1
	}
	filled := int(frac * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	var bar strings.Builder
	bar.WriteString(prefix)
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteByte('=')
		case i == filled && filled < barWidth:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}
	bar.WriteString("]")
	bar.WriteString(suffix)
	return bar.String()
}
