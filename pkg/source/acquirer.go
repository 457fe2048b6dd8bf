package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GitRunner executes a git command and returns its combined output.
// This abstraction allows mocking in tests.
type GitRunner func(ctx context.Context, args ...string) (string, error)

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// Acquirer materializes template sources into uniquely-named working
// directories under a scratch root.
type Acquirer struct {
	scratchRoot  string
	cloneTimeout time.Duration
	runner       GitRunner
	logger       zerolog.Logger
}

// Config holds acquirer configuration.
type Config struct {
	ScratchRoot  string
	CloneTimeout time.Duration
	Runner       GitRunner // if nil, uses the real git subprocess
	Logger       zerolog.Logger
}

// New creates a new Acquirer and ensures the scratch root exists.
func New(cfg Config) (*Acquirer, error) {
	if cfg.ScratchRoot == "" {
		return nil, fmt.Errorf("scratch root is required")
	}
	if cfg.CloneTimeout == 0 {
		cfg.CloneTimeout = 120 * time.Second
	}
	if cfg.Runner == nil {
		cfg.Runner = defaultGitRunner
	}

	if err := os.MkdirAll(cfg.ScratchRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch root: %w", err)
	}

	return &Acquirer{
		scratchRoot:  cfg.ScratchRoot,
		cloneTimeout: cfg.CloneTimeout,
		runner:       cfg.Runner,
		logger:       cfg.Logger,
	}, nil
}

// Validate checks the shape of a source without touching the filesystem
// beyond an existence probe for local paths. It rejects anything that is
// neither an https:// URL nor an absolute path to an existing directory.
func (a *Acquirer) Validate(src string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return ErrInvalidSource
	}
	if strings.HasPrefix(src, "http://") {
		return fmt.Errorf("%w: only HTTPS URLs are supported", ErrInvalidSource)
	}
	if strings.HasPrefix(src, "https://") {
		return nil
	}
	if !filepath.IsAbs(src) {
		return ErrInvalidSource
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %q is not an existing directory", ErrInvalidSource, src)
	}
	return nil
}

// Acquire materializes the source into a fresh uuid-named directory under
// the scratch root and returns its path. The directory is created even on
// partial failure; the caller owns its removal on error.
func (a *Acquirer) Acquire(ctx context.Context, src string) (string, error) {
	src = strings.TrimSpace(src)
	if err := a.Validate(src); err != nil {
		return "", err
	}

	workDir := filepath.Join(a.scratchRoot, uuid.NewString())

	if strings.HasPrefix(src, "https://") {
		if err := a.clone(ctx, src, workDir); err != nil {
			return workDir, err
		}
	} else {
		if err := a.copyDir(src, workDir); err != nil {
			return workDir, err
		}
	}

	return workDir, nil
}

// clone performs a shallow depth-1 clone of the repository.
func (a *Acquirer) clone(ctx context.Context, repoURL, targetDir string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cloneTimeout)
	defer cancel()

	a.logger.Info().Str("url", repoURL).Str("dir", targetDir).Msg("Cloning template repository")

	out, err := a.runner(ctx, "clone", "--depth", "1", repoURL, targetDir)
	if err != nil {
		a.logger.Warn().Err(err).Str("url", repoURL).Msg("Git clone failed")
		diag := strings.TrimSpace(out)
		if diag == "" {
			diag = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrAcquisitionFailed, diag)
	}

	a.logger.Info().Str("url", repoURL).Msg("Clone completed")
	return nil
}

// copyDir copies the immediate contents of srcDir into targetDir,
// recursing into subdirectories. Symlinks are resolved and copied as
// concrete content.
func (a *Acquirer) copyDir(srcDir, targetDir string) error {
	a.logger.Info().Str("src", srcDir).Str("dir", targetDir).Msg("Copying local template")

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(srcDir, entry.Name())
		dstPath := filepath.Join(targetDir, entry.Name())

		info, err := os.Stat(srcPath)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
		}

		if info.IsDir() {
			if err := a.copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(srcPath, dstPath, info.Mode()); err != nil {
			return fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
		}
	}

	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
