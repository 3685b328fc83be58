package vault

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeS3 serves path-style object requests for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/"+f.bucket)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	key := strings.TrimPrefix(rest, "/")
	if key == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	switch r.Method {
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		f.objects[key] = data
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestS3Vault(t *testing.T, prefix string) (*S3Vault, *fakeS3) {
	t.Helper()
	fake := &fakeS3{bucket: "archives", objects: make(map[string][]byte)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	v, err := NewS3Vault(context.Background(), "test", S3Options{
		Bucket:          "archives",
		Prefix:          prefix,
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Vault() error = %v", err)
	}
	return v, fake
}

func TestNewS3Vault_RequiresBucket(t *testing.T) {
	if _, err := NewS3Vault(context.Background(), "test", S3Options{}); err == nil {
		t.Error("expected error without bucket")
	}
}

func TestS3Vault_RoundTrip(t *testing.T) {
	ctx := context.Background()
	v, fake := newTestS3Vault(t, "host-1")

	data := "archive bytes"
	if err := v.PutArchive(ctx, "aw_2001.tar.gz", strings.NewReader(data), -1); err != nil {
		t.Fatalf("PutArchive() error = %v", err)
	}
	if got := string(fake.objects["host-1/aw_2001.tar.gz"]); got != data {
		t.Errorf("stored object = %q, want %q", got, data)
	}

	ok, err := v.HasArchive(ctx, "aw_2001.tar.gz")
	if err != nil || !ok {
		t.Errorf("HasArchive() = %v, %v", ok, err)
	}

	var buf bytes.Buffer
	if err := v.GetArchive(ctx, "aw_2001.tar.gz", &buf); err != nil {
		t.Fatalf("GetArchive() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("GetArchive() = %q, want %q", buf.String(), data)
	}
}

func TestS3Vault_Missing(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestS3Vault(t, "")

	ok, err := v.HasArchive(ctx, "nope.tar.gz")
	if err != nil || ok {
		t.Errorf("HasArchive() = %v, %v", ok, err)
	}

	var buf bytes.Buffer
	if err := v.GetArchive(ctx, "nope.tar.gz", &buf); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetArchive() error = %v, want ErrNotFound", err)
	}
}

func TestS3Vault_SizeMismatch(t *testing.T) {
	v, _ := newTestS3Vault(t, "")
	if err := v.PutArchive(context.Background(), "a.tar.gz", strings.NewReader("abc"), 10); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestS3Vault_ValidateSetup(t *testing.T) {
	v, _ := newTestS3Vault(t, "")
	if err := v.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}
}
