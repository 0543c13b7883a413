package outputstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"subforge/internal/logging"
	"subforge/internal/services"
)

// Artifact records one published output file.
type Artifact struct {
	Kind     string    `json:"kind"`
	Format   string    `json:"format,omitempty"`
	Language string    `json:"language,omitempty"`
	Path     string    `json:"path"`
	Bytes    int64     `json:"bytes"`
	Created  time.Time `json:"created"`
}

// Store manages staged writes and atomic publication of job outputs.
// Artifacts are assembled under the staging directory and moved into the
// job's output directory only when complete, so readers never observe
// partial files.
type Store struct {
	outputDir  string
	stagingDir string
	logger     *slog.Logger
	overwrite  bool
}

// New builds a store rooted at outputDir with scratch space at stagingDir.
func New(outputDir, stagingDir string, logger *slog.Logger) (*Store, error) {
	outputDir = strings.TrimSpace(outputDir)
	stagingDir = strings.TrimSpace(stagingDir)
	if outputDir == "" || stagingDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "store", "new", "output and staging directories are required", nil)
	}
	if outputDir == stagingDir {
		return nil, services.Wrap(services.ErrConfiguration, "store", "new", "output and staging directories must differ", nil)
	}
	for _, dir := range []string{outputDir, stagingDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "store", "new", "create "+dir, err)
		}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{outputDir: outputDir, stagingDir: stagingDir, logger: logger, overwrite: true}, nil
}

// WithOverwrite sets whether Publish may replace an existing output file.
// When disabled, publishing over an existing path fails instead.
func (s *Store) WithOverwrite(overwrite bool) *Store {
	s.overwrite = overwrite
	return s
}

// OutputDir returns the store root.
func (s *Store) OutputDir() string { return s.outputDir }

// StageDir creates and returns the scratch directory for a job.
func (s *Store) StageDir(jobID string) (string, error) {
	if strings.TrimSpace(jobID) == "" {
		return "", services.Wrap(services.ErrValidation, "store", "stage", "empty job id", nil)
	}
	dir := filepath.Join(s.stagingDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "store", "stage", "create staging dir", err)
	}
	return dir, nil
}

// JobDir returns the published directory for a job.
func (s *Store) JobDir(jobID string) string {
	return filepath.Join(s.outputDir, jobID)
}

// Publish moves a staged file into the job's output directory under name and
// returns the artifact record. The move is a rename when possible and a
// copy-then-rename across filesystems, so the destination appears atomically.
func (s *Store) Publish(ctx context.Context, jobID, stagedPath, name, kind, format, language string) (Artifact, error) {
	info, err := os.Stat(stagedPath)
	if err != nil {
		return Artifact{}, services.Wrap(services.ErrTransient, "store", "publish", "missing staged file", err)
	}

	jobDir := s.JobDir(jobID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrTransient, "store", "publish", "create job dir", err)
	}
	target := filepath.Join(jobDir, name)
	if !s.overwrite {
		if _, err := os.Stat(target); err == nil {
			return Artifact{}, services.Wrap(services.ErrValidation, "store", "publish", "output "+target+" already exists and overwriting is disabled", nil)
		} else if !os.IsNotExist(err) {
			return Artifact{}, services.Wrap(services.ErrTransient, "store", "publish", "stat output target", err)
		}
	}

	if err := moveFile(stagedPath, target); err != nil {
		return Artifact{}, services.Wrap(services.ErrTransient, "store", "publish", "move into output", err)
	}
	s.logger.InfoContext(ctx, "artifact published",
		logging.String(logging.FieldJobID, jobID),
		logging.String("kind", kind),
		logging.String("path", target),
		logging.Int64("bytes", info.Size()),
	)

	return Artifact{
		Kind:     kind,
		Format:   format,
		Language: language,
		Path:     target,
		Bytes:    info.Size(),
		Created:  time.Now().UTC(),
	}, nil
}

// DiscardStage removes a job's staging directory and everything in it.
func (s *Store) DiscardStage(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(s.stagingDir, jobID))
}

// List returns the published artifacts for a job, sorted by name.
func (s *Store) List(jobID string) ([]Artifact, error) {
	jobDir := s.JobDir(jobID)
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrTransient, "store", "list", "read job dir", err)
	}
	artifacts := make([]Artifact, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Kind:    kindFromName(entry.Name()),
			Path:    filepath.Join(jobDir, entry.Name()),
			Bytes:   info.Size(),
			Created: info.ModTime().UTC(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Path < artifacts[j].Path })
	return artifacts, nil
}

// Clear removes all published outputs for a job.
func (s *Store) Clear(jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return services.Wrap(services.ErrValidation, "store", "clear", "empty job id", nil)
	}
	return os.RemoveAll(s.JobDir(jobID))
}

// CleanStaleStaging removes staging directories older than maxAge, returning
// the removed paths.
func (s *Store) CleanStaleStaging(maxAge time.Duration) []string {
	entries, err := os.ReadDir(s.stagingDir)
	if err != nil {
		return nil
	}
	cutoff := time.Now().Add(-maxAge)
	var removed []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		dir := filepath.Join(s.stagingDir, entry.Name())
		if err := os.RemoveAll(dir); err == nil {
			removed = append(removed, dir)
		}
	}
	return removed
}

func kindFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt", ".vtt", ".ass", ".txt":
		return "caption"
	case ".mp4", ".mkv", ".mov", ".webm":
		return "video"
	case ".wav", ".mp3", ".m4a":
		return "audio"
	case ".json":
		return "manifest"
	default:
		return "file"
	}
}

func moveFile(source, target string) error {
	renameErr := os.Rename(source, target)
	if renameErr == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return renameErr
	}
	// Cross-device move: copy to a temp name in the target directory, fsync,
	// then rename so the final path appears atomically.
	tmp := target + ".partial"
	if err := copyFile(source, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(source)
}

// copyFile copies source to target, verifying size and content hash.
func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}

	srcHash := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, srcHash), in)
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if info.Size() != written {
		return fmt.Errorf("copy size mismatch: wrote %d, stat %d", written, info.Size())
	}

	dstHash := sha256.New()
	check, err := os.Open(target)
	if err != nil {
		return err
	}
	defer check.Close()
	if _, err := io.Copy(dstHash, check); err != nil {
		return err
	}
	if hex.EncodeToString(srcHash.Sum(nil)) != hex.EncodeToString(dstHash.Sum(nil)) {
		return fmt.Errorf("copy hash mismatch for %s", target)
	}
	return nil
}
