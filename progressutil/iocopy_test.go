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

package progressutil

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestCopyOne(t *testing.T) {
	cpp := NewCopyProgressPrinter()

	sampleData := []byte("this is a test!")
	r := bytes.NewReader(bytes.Repeat(sampleData, 10))
	var w bytes.Buffer
	printTo := &bytes.Buffer{}

	if err := cpp.AddCopy(r, "download", int64(r.Len()), &w); err != nil {
		t.Fatalf("AddCopy: %v", err)
	}

	if err := cpp.PrintAndWait(printTo, time.Millisecond, nil); err != nil {
		t.Fatalf("PrintAndWait: %v", err)
	}

	if !bytes.Equal(w.Bytes(), bytes.Repeat(sampleData, 10)) {
		t.Errorf("copied bytes don't match")
	}
	if !strings.Contains(printTo.String(), "download") {
		t.Errorf("expected progress output to mention the copy's label")
	}
}

func TestErrAlreadyStarted(t *testing.T) {
	cpp := NewCopyProgressPrinter()
	r := bytes.NewReader(make([]byte, 1024))
	var w bytes.Buffer
	printTo := &bytes.Buffer{}

	if err := cpp.AddCopy(r, "download", int64(r.Len()), &w); err != nil {
		t.Fatalf("AddCopy: %v", err)
	}

	cancel := make(chan struct{})
	doneChan := make(chan error, 1)
	go func() {
		doneChan <- cpp.PrintAndWait(printTo, time.Second, cancel)
	}()

	time.Sleep(50 * time.Millisecond)

	if err := cpp.AddCopy(r, "download", int64(r.Len()), &w); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	if err := cpp.PrintAndWait(printTo, time.Second, cancel); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	close(cancel)
	if err := <-doneChan; err != nil {
		t.Errorf("PrintAndWait: %v", err)
	}
}

func TestByteUnitStr(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{1 << 20, "1.0MB"},
	}
	for _, c := range cases {
		if got := ByteUnitStr(c.n); got != c.want {
			t.Errorf("ByteUnitStr(%d) = %q, want %q", c.n, got, c.want)
		}
	}
}

func TestRenderProgressBar(t *testing.T) {
	bar := renderProgressBar(40, "x", 0.5, "1B / 2B")
	if len(bar) == 0 {
		t.Fatal("expected non-empty bar")
	}
	if !strings.HasPrefix(bar, "x [") {
		t.Errorf("expected bar to start with label, got %q", bar)
	}
	if !strings.HasSuffix(bar, "1B / 2B") {
		t.Errorf("expected bar to end with size string, got %q", bar)
	}
}
