// Package gitrepo backs up and restores the git data of a repository as a
// bare mirror directory or a single bundle file.
package gitrepo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Format is the on-disk layout of a git backup.
type Format string

const (
	FormatMirror Format = "mirror"
	FormatBundle Format = "bundle"
)

// ParseFormat validates a format name. Empty selects FormatMirror.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatMirror:
		return FormatMirror, nil
	case FormatBundle:
		return FormatBundle, nil
	default:
		return "", fmt.Errorf("unknown git backup format %q (valid: mirror, bundle)", s)
	}
}

// Backup file names inside the backup directory.
const (
	MirrorDir  = "repository.git"
	BundleFile = "repository.bundle"
)

// Result reports the outcome of a git operation. Failures are carried in
// Err rather than returned separately.
type Result struct {
	Success   bool   `json:"success"`
	Path      string `json:"path,omitempty"`
	Format    Format `json:"format,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	Refs      int    `json:"refs,omitempty"`
	Err       error  `json:"-"`
}

func failed(err error) Result {
	return Result{Err: err}
}

// Service clones, restores and validates git backups.
type Service interface {
	// Clone mirrors repoURL into destDir and returns the backup path.
	Clone(ctx context.Context, repoURL, destDir string) Result
	// Restore pushes every ref in the backup at backupPath to destURL.
	Restore(ctx context.Context, backupPath, destURL string) Result
	// Validate checks that backupPath holds a readable git backup.
	Validate(ctx context.Context, backupPath string) Result
}

// CLIService implements Service with the git CLI; mirrors are validated
// with go-git.
type CLIService struct {
	runner CommandRunner
	format Format
	logger *slog.Logger
}

// Option configures a CLIService.
type Option func(*CLIService)

// WithRunner sets the command runner.
func WithRunner(r CommandRunner) Option {
	return func(s *CLIService) { s.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *CLIService) { s.logger = l }
}

// New creates a CLIService that writes backups in format.
func New(format Format, opts ...Option) *CLIService {
	s := &CLIService{
		runner: NewExecRunner(),
		format: format,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.format == "" {
		s.format = FormatMirror
	}
	return s
}

// Format returns the backup format.
func (s *CLIService) Format() Format { return s.format }

// Clone mirrors repoURL. A mirror backup is left at destDir/repository.git;
// a bundle backup is written to destDir/repository.bundle from a temporary
// mirror that is removed afterwards.
func (s *CLIService) Clone(ctx context.Context, repoURL, destDir string) Result {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return failed(fmt.Errorf("create git backup directory: %w", err))
	}

	switch s.format {
	case FormatBundle:
		tmp, err := os.MkdirTemp(destDir, ".mirror-*")
		if err != nil {
			return failed(fmt.Errorf("create temp mirror: %w", err))
		}
		defer func() { _ = os.RemoveAll(tmp) }()

		mirror := filepath.Join(tmp, MirrorDir)
		if _, err := s.runner.Run(ctx, destDir, "git", "clone", "--mirror", repoURL, mirror); err != nil {
			return failed(fmt.Errorf("clone mirror: %w", err))
		}

		bundle := filepath.Join(destDir, BundleFile)
		if _, err := s.runner.Run(ctx, mirror, "git", "bundle", "create", bundle, "--all"); err != nil {
			return failed(fmt.Errorf("create bundle: %w", err))
		}
		return s.finish(ctx, bundle)

	default:
		mirror := filepath.Join(destDir, MirrorDir)
		if err := os.RemoveAll(mirror); err != nil {
			return failed(fmt.Errorf("remove previous mirror: %w", err))
		}
		if _, err := s.runner.Run(ctx, destDir, "git", "clone", "--mirror", repoURL, mirror); err != nil {
			return failed(fmt.Errorf("clone mirror: %w", err))
		}
		return s.finish(ctx, mirror)
	}
}

// finish validates a freshly written backup and records its size.
func (s *CLIService) finish(ctx context.Context, path string) Result {
	res := s.Validate(ctx, path)
	if !res.Success {
		return res
	}
	s.logger.Info("git backup written", "path", path, "format", res.Format, "size_bytes", res.SizeBytes)
	return res
}

// Restore pushes the backup to destURL with push --mirror. Bundles are
// first cloned into a temporary mirror.
func (s *CLIService) Restore(ctx context.Context, backupPath, destURL string) Result {
	format, err := DetectFormat(backupPath)
	if err != nil {
		return failed(err)
	}

	source := backupPath
	if format == FormatBundle {
		tmp, err := os.MkdirTemp("", "repoback-bundle-*")
		if err != nil {
			return failed(fmt.Errorf("create temp mirror: %w", err))
		}
		defer func() { _ = os.RemoveAll(tmp) }()

		source = filepath.Join(tmp, MirrorDir)
		if _, err := s.runner.Run(ctx, tmp, "git", "clone", "--mirror", backupPath, source); err != nil {
			return failed(fmt.Errorf("unpack bundle: %w", err))
		}
	}

	if _, err := s.runner.Run(ctx, source, "git", "push", "--mirror", destURL); err != nil {
		return failed(fmt.Errorf("push mirror: %w", err))
	}

	size, _ := dirSize(backupPath)
	s.logger.Info("git repository restored", "destination", RedactURL(destURL), "format", format)
	return Result{Success: true, Path: backupPath, Format: format, SizeBytes: size}
}

// Validate opens a mirror with go-git and counts its references, or runs
// git bundle verify for a bundle.
func (s *CLIService) Validate(ctx context.Context, backupPath string) Result {
	format, err := DetectFormat(backupPath)
	if err != nil {
		return failed(err)
	}

	size, err := dirSize(backupPath)
	if err != nil {
		return failed(fmt.Errorf("measure backup: %w", err))
	}
	res := Result{Path: backupPath, Format: format, SizeBytes: size}

	if format == FormatBundle {
		if _, err := s.runner.Run(ctx, filepath.Dir(backupPath), "git", "bundle", "verify", backupPath); err != nil {
			res.Err = fmt.Errorf("verify bundle: %w", err)
			return res
		}
		res.Success = true
		return res
	}

	refs, err := countRefs(backupPath)
	if err != nil {
		res.Err = err
		return res
	}
	res.Refs = refs
	res.Success = true
	return res
}

// countRefs opens the repository at path and counts its references.
func countRefs(path string) (int, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return 0, fmt.Errorf("open mirror %s: %w", path, err)
	}
	iter, err := repo.References()
	if err != nil {
		return 0, fmt.Errorf("list references: %w", err)
	}
	defer iter.Close()

	n := 0
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() == plumbing.HashReference {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("iterate references: %w", err)
	}
	return n, nil
}

// DetectFormat infers the format from a backup path: a regular file is a
// bundle, a directory is a mirror.
func DetectFormat(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("git backup %s: %w", path, err)
	}
	if info.IsDir() {
		return FormatMirror, nil
	}
	return FormatBundle, nil
}

// BackupPath returns where a backup of format lives inside dir.
func BackupPath(dir string, format Format) string {
	if format == FormatBundle {
		return filepath.Join(dir, BundleFile)
	}
	return filepath.Join(dir, MirrorDir)
}

// dirSize returns the total size of the files under path.
func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// CloneURL returns the HTTPS clone URL for repo ("owner/name") on host,
// with token embedded as basic auth when set.
func CloneURL(host, repo, token string) string {
	if host == "" {
		host = "github.com"
	}
	host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(host, "https://"), "http://"), "/")
	u := url.URL{Scheme: "https", Host: host, Path: "/" + strings.TrimSuffix(repo, ".git") + ".git"}
	if token != "" {
		u.User = url.UserPassword("x-access-token", token)
	}
	return u.String()
}

// RedactURL replaces the password of a URL with "redacted". Other strings are
// returned unchanged.
func RedactURL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.User == nil {
		return s
	}
	if _, ok := u.User.Password(); !ok {
		return s
	}
	u.User = url.UserPassword(u.User.Username(), "redacted")
	return u.String()
}
