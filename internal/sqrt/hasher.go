package sqrt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// ForceHash is stored by ToggleHash so the next check reports the resource
// as changed. No SHA-256 digest can equal it.
const ForceHash = "0"

// HashState describes a stored hash relative to the current file.
type HashState string

const (
	HashUnchanged HashState = "unchanged"
	HashUpdated   HashState = "updated"
	HashDeleted   HashState = "deleted"
)

// HashStatus is one entry of the hash listing.
type HashStatus struct {
	ResourceID string
	State      HashState
}

// ContentHasher decides whether an input resource changed since it was last
// ingested, by comparing the SHA-256 of its bytes with the stored hash.
type ContentHasher struct {
	database Database
	fsmgr    FilesystemManager
	logger   Logger
}

// NewContentHasher creates a ContentHasher.
func NewContentHasher(database Database, fsmgr FilesystemManager, logger Logger) *ContentHasher {
	return &ContentHasher{database: database, fsmgr: fsmgr, logger: logger}
}

// Hash returns the lowercase hex SHA-256 of the resource content.
func (h *ContentHasher) Hash(res *Resource) (string, error) {
	rc, err := h.fsmgr.Open(res)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", res.ID(), err)
	}
	defer rc.Close()

	sum := sha256.New()
	if _, err := io.Copy(sum, rc); err != nil {
		return "", fmt.Errorf("hashing %s: %w", res.ID(), err)
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}

// IsUpdated reports whether the resource has no stored hash or its content
// hash differs from the stored one. It never writes.
func (h *ContentHasher) IsUpdated(ctx context.Context, res *Resource) (bool, error) {
	stored, err := h.database.GetResourceHash(ctx, res.ID())
	if err != nil {
		return false, fmt.Errorf("loading hash: %w", err)
	}
	if stored == nil {
		return true, nil
	}
	current, err := h.Hash(res)
	if err != nil {
		return false, err
	}
	return current != stored.ContentHash, nil
}

// SaveHash computes the current hash of the resource and stores it.
func (h *ContentHasher) SaveHash(ctx context.Context, res *Resource) error {
	current, err := h.Hash(res)
	if err != nil {
		return err
	}
	return h.store(ctx, res, current)
}

// check hashes the resource and reports whether the hash differs from the
// stored one. The returned hash is the one to store once res is imported,
// so bytes appended during the import are picked up by the next run.
func (h *ContentHasher) check(ctx context.Context, res *Resource) (string, bool, error) {
	stored, err := h.database.GetResourceHash(ctx, res.ID())
	if err != nil {
		return "", false, fmt.Errorf("loading hash: %w", err)
	}
	current, err := h.Hash(res)
	if err != nil {
		return "", false, err
	}
	return current, stored == nil || stored.ContentHash != current, nil
}

func (h *ContentHasher) store(ctx context.Context, res *Resource, hash string) error {
	if err := h.database.PutResourceHash(ctx, res.ID(), hash); err != nil {
		return fmt.Errorf("saving hash: %w", err)
	}
	h.logger.Debug("hash saved", "resource", res.ID())
	return nil
}

// ToggleHash marks an updated resource as processed, or an unchanged one
// as needing reprocessing. The resource itself is not touched.
// It returns whether the resource is now considered updated.
func (h *ContentHasher) ToggleHash(ctx context.Context, res *Resource) (bool, error) {
	updated, err := h.IsUpdated(ctx, res)
	if err != nil {
		return false, err
	}
	if updated {
		return false, h.SaveHash(ctx, res)
	}
	if err := h.database.PutResourceHash(ctx, res.ID(), ForceHash); err != nil {
		return false, fmt.Errorf("saving hash: %w", err)
	}
	return true, nil
}

// Statuses lists every stored hash with its state against the filesystem.
func (h *ContentHasher) Statuses(ctx context.Context) ([]*HashStatus, error) {
	hashes, err := h.database.ListResourceHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hashes: %w", err)
	}

	statuses := make([]*HashStatus, 0, len(hashes))
	for _, stored := range hashes {
		state, err := h.state(stored.ResourceID, stored.ContentHash)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, &HashStatus{ResourceID: stored.ResourceID, State: state})
	}
	return statuses, nil
}

// Cleanup deletes hashes whose resource no longer exists.
// It returns the number of entries removed.
func (h *ContentHasher) Cleanup(ctx context.Context) (int, error) {
	hashes, err := h.database.ListResourceHashes(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing hashes: %w", err)
	}

	removed := 0
	for _, stored := range hashes {
		exists, err := h.fsmgr.Exists(stored.ResourceID)
		if err != nil {
			return removed, fmt.Errorf("checking %s: %w", stored.ResourceID, err)
		}
		if exists {
			continue
		}
		if err := h.database.DeleteResourceHash(ctx, stored.ResourceID); err != nil {
			return removed, fmt.Errorf("deleting hash of %s: %w", stored.ResourceID, err)
		}
		h.logger.Info("hash removed", "resource", stored.ResourceID)
		removed++
	}
	return removed, nil
}

func (h *ContentHasher) state(resourceID, storedHash string) (HashState, error) {
	exists, err := h.fsmgr.Exists(resourceID)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", resourceID, err)
	}
	if !exists {
		return HashDeleted, nil
	}
	res, err := h.fsmgr.Resolve(resourceID)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", resourceID, err)
	}
	current, err := h.Hash(res)
	if err != nil {
		return "", err
	}
	if current != storedHash {
		return HashUpdated, nil
	}
	return HashUnchanged, nil
}
