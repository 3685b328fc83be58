package sqrt

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const secondsPerDay = 24 * 60 * 60

// ArchiveGroup is a set of processed files of one directory whose
// modification times fall into the same group of ArchiveSettings.Days days.
type ArchiveGroup struct {
	Dir   string
	Group int64
	Files []*Resource
}

// ArchiveReport summarizes an Archive run.
type ArchiveReport struct {
	Archives      []string // vault keys written
	FilesRemoved  int
	HashesRemoved int
}

// dateGroup returns the index of the days-wide group containing unix.
func dateGroup(unix int64, days int) int64 {
	return unix / int64(secondsPerDay*days)
}

// PlanArchive groups the files that have a stored hash by directory and
// date group. The current group is never archived, nor the previous one
// while fewer than Timeout days of the current group have passed.
func (s *SqrtService) PlanArchive(ctx context.Context) ([]*ArchiveGroup, error) {
	cfg := s.settings.Archive
	if cfg.Days <= 0 {
		return nil, fmt.Errorf("archive days must be positive, got %d", cfg.Days)
	}

	hashes, err := s.database.ListResourceHashes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hashes: %w", err)
	}

	now := s.clock.Now().Unix()
	current := dateGroup(now, cfg.Days)
	elapsedDays := now/secondsPerDay - current*int64(cfg.Days)

	type groupKey struct {
		dir   string
		group int64
	}
	groups := make(map[groupKey]*ArchiveGroup)

	for _, h := range hashes {
		exists, err := s.fsmgr.Exists(h.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", h.ResourceID, err)
		}
		if !exists {
			continue
		}
		res, err := s.fsmgr.Resolve(h.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", h.ResourceID, err)
		}

		rel, err := filepath.Rel(cfg.Root, res.Dir())
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			s.logger.Debug("outside archive root", "resource", res.ID())
			continue
		}
		if slices.Contains(cfg.ExcludeDirs, rel) {
			continue
		}
		ignored, err := s.fsmgr.IsIgnored(res, cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("checking ignore rules for %s: %w", res.ID(), err)
		}
		if ignored {
			continue
		}

		group := dateGroup(res.ModTime().Unix(), cfg.Days)
		if group == current || (group == current-1 && elapsedDays <= int64(cfg.Timeout)) {
			continue
		}

		k := groupKey{res.Dir(), group}
		g, ok := groups[k]
		if !ok {
			g = &ArchiveGroup{Dir: res.Dir(), Group: group}
			groups[k] = g
		}
		g.Files = append(g.Files, res)
	}

	out := make([]*ArchiveGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Dir != out[j].Dir {
			return out[i].Dir < out[j].Dir
		}
		return out[i].Group < out[j].Group
	})
	return out, nil
}

// ArchiveKey returns the base vault key of a group: the directory relative
// to the root with "/" replaced by "_", then the group index.
func (s *SqrtService) ArchiveKey(g *ArchiveGroup) string {
	rel, err := filepath.Rel(s.settings.Archive.Root, g.Dir)
	if err != nil || rel == "." {
		rel = "root"
	}
	key := strings.ReplaceAll(filepath.ToSlash(rel), "/", "_") + "_" + strconv.FormatInt(g.Group, 10) + ".tar.gz"
	if s.encryptor != nil {
		key += s.encryptor.Extension()
	}
	return key
}

// Archive compresses every planned group into the vault, removes the
// archived files and drops the hashes of files that no longer exist.
func (s *SqrtService) Archive(ctx context.Context) (*ArchiveReport, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	groups, err := s.PlanArchive(ctx)
	if err != nil {
		return nil, err
	}

	report := &ArchiveReport{}
	if len(groups) == 0 {
		s.logger.Info("nothing to archive")
	}
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		key, err := s.freeArchiveKey(ctx, s.ArchiveKey(g))
		if err != nil {
			return report, err
		}

		s.logger.Info("creating archive", "key", key, "files", len(g.Files))
		stream := s.archiveStream(g.Files)
		err = s.vault.PutArchive(ctx, key, stream, -1)
		stream.Close()
		if err != nil {
			return report, fmt.Errorf("storing archive %s: %w", key, err)
		}
		report.Archives = append(report.Archives, key)

		for _, f := range g.Files {
			if err := s.fsmgr.Remove(f); err != nil {
				return report, fmt.Errorf("removing archived file %s: %w", f.ID(), err)
			}
			report.FilesRemoved++
		}
	}

	removed, err := s.hasher.Cleanup(ctx)
	report.HashesRemoved = removed
	if err != nil {
		return report, fmt.Errorf("cleaning up hashes: %w", err)
	}
	return report, nil
}

// freeArchiveKey returns base, or base with a numeric suffix when an
// archive of the same group was stored by an earlier run.
func (s *SqrtService) freeArchiveKey(ctx context.Context, base string) (string, error) {
	key := base
	for n := 2; ; n++ {
		exists, err := s.vault.HasArchive(ctx, key)
		if err != nil {
			return "", fmt.Errorf("checking archive %s: %w", key, err)
		}
		if !exists {
			return key, nil
		}
		key = base + "." + strconv.Itoa(n)
	}
}

// archiveStream returns a reader producing the (optionally encrypted)
// tar.gz of files. Closing the reader stops the producers.
func (s *SqrtService) archiveStream(files []*Resource) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.writeArchive(pw, files))
	}()
	if s.encryptor == nil {
		return pr
	}

	er, ew := io.Pipe()
	go func() {
		err := s.encryptor.Encrypt(pr, ew)
		pr.CloseWithError(err)
		ew.CloseWithError(err)
	}()
	return er
}

func (s *SqrtService) writeArchive(w io.Writer, files []*Resource) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, f := range files {
		info, err := s.fsmgr.Stat(f)
		if err != nil {
			return fmt.Errorf("stat %s: %w", f.ID(), err)
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return fmt.Errorf("tar header for %s: %w", f.ID(), err)
		}
		hdr.Name = f.Name()
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header: %w", err)
		}

		rc, err := s.fsmgr.Open(f)
		if err != nil {
			return fmt.Errorf("opening %s: %w", f.ID(), err)
		}
		_, err = io.Copy(tw, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("archiving %s: %w", f.ID(), err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing tar: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("finalizing gzip: %w", err)
	}
	return nil
}

// RetrieveArchive writes the archive stored under key to w, decrypting it
// with dc when dc is not nil.
func (s *SqrtService) RetrieveArchive(ctx context.Context, key string, dc DecryptionContext, w io.Writer) error {
	if s.vault == nil {
		return fmt.Errorf("no vault configured")
	}
	if dc == nil {
		return s.vault.GetArchive(ctx, key, w)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.vault.GetArchive(ctx, key, pw))
	}()
	err := dc.Decrypt(pr, w)
	pr.CloseWithError(err)
	if err != nil {
		return fmt.Errorf("decrypting archive %s: %w", key, err)
	}
	return nil
}
