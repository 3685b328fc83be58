package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"sqrt-go/internal/sqrt"
)

// StubDumpFetcher serves a fixed export from memory.
type StubDumpFetcher struct {
	mu        sync.Mutex
	Dump      *sqrt.Dump // nil means no dump is ready
	Content   []byte
	Err       error // returned by LatestDump when set
	Downloads int
}

func (f *StubDumpFetcher) LatestDump(ctx context.Context) (*sqrt.Dump, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Dump, nil
}

func (f *StubDumpFetcher) Download(ctx context.Context, dump *sqrt.Dump, w io.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Dump == nil || dump.ID != f.Dump.ID {
		return fmt.Errorf("unknown dump %q", dump.ID)
	}
	f.Downloads++
	_, err := io.Copy(w, bytes.NewReader(f.Content))
	return err
}

var _ sqrt.DumpFetcher = (*StubDumpFetcher)(nil)
