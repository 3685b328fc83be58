package vault

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMemoryVault_PutAndGetArchive(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")

	tests := []struct {
		name    string
		key     string
		content string
		size    int64
		wantErr bool
	}{
		{"known size", "aw_1.tar.gz", "hello world", 11, false},
		{"unknown size", "aw_2.tar.gz", "streamed", -1, false},
		{"empty archive", "empty.tar.gz", "", 0, false},
		{"large archive", "large.tar.gz", strings.Repeat("x", 10000), 10000, false},
		{"size mismatch", "bad.tar.gz", "test", 14, true},
		{"invalid key", "../escape.tar.gz", "x", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vault.PutArchive(ctx, tt.key, strings.NewReader(tt.content), tt.size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("PutArchive() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if ok, _ := vault.HasArchive(ctx, tt.key); ok {
					t.Error("failed put left an archive behind")
				}
				return
			}

			var buf bytes.Buffer
			if err := vault.GetArchive(ctx, tt.key, &buf); err != nil {
				t.Fatalf("GetArchive() unexpected error: %v", err)
			}
			if got := buf.String(); got != tt.content {
				t.Errorf("GetArchive() = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestMemoryVault_GetArchiveNotFound(t *testing.T) {
	vault := NewMemoryVault("test-vault")

	var buf bytes.Buffer
	err := vault.GetArchive(context.Background(), "nonexistent", &buf)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetArchive() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryVault_HasArchiveAndKeys(t *testing.T) {
	ctx := context.Background()
	vault := NewMemoryVault("test-vault")

	for _, key := range []string{"b.tar.gz", "a.tar.gz"} {
		if err := vault.PutArchive(ctx, key, strings.NewReader(key), -1); err != nil {
			t.Fatalf("PutArchive(%s) error: %v", key, err)
		}
	}

	if ok, err := vault.HasArchive(ctx, "a.tar.gz"); err != nil || !ok {
		t.Errorf("HasArchive(a) = %v, %v", ok, err)
	}
	if ok, err := vault.HasArchive(ctx, "c.tar.gz"); err != nil || ok {
		t.Errorf("HasArchive(c) = %v, %v", ok, err)
	}
	if got := strings.Join(vault.Keys(), ","); got != "a.tar.gz,b.tar.gz" {
		t.Errorf("Keys() = %s", got)
	}
}

func TestMemoryVault_ValidateSetup(t *testing.T) {
	vault := NewMemoryVault("test-vault")
	if err := vault.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() unexpected error: %v", err)
	}
}

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"aw_2001.tar.gz", false},
		{"host/aw_2001.tar.gz.age", false},
		{"", true},
		{"/abs.tar.gz", true},
		{"../up.tar.gz", true},
		{"a/../b.tar.gz", true},
		{"a//b.tar.gz", true},
		{`a\b.tar.gz`, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := validateKey(tt.key); (err != nil) != tt.wantErr {
				t.Errorf("validateKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
