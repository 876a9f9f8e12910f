// Package provision obtains a UCI engine binary: either by downloading an
// official release archive or by building from source with make.
package provision

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// maxBinarySize caps extraction to guard against decompression bombs in a
// tampered archive. Engine binaries are tens of megabytes.
const maxBinarySize = 512 << 20

// Provisioner downloads or builds engine binaries into a target directory.
type Provisioner struct {
	httpClient *http.Client
	logger     *slog.Logger

	// runCommand is swapped in tests to avoid invoking git/make
	runCommand func(ctx context.Context, dir, name string, args ...string) error
}

// New creates a Provisioner.
func New(logger *slog.Logger) *Provisioner {
	return &Provisioner{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		logger:     logger,
		runCommand: runCommand,
	}
}

// DownloadRelease fetches a release archive (tar, .tar.gz, or .zip),
// extracts the engine binary into destDir, marks it executable, and
// verifies it runs. It returns the binary path.
//
// The work happens in a temporary directory; destDir is only touched when
// the binary verified, so a failed download never leaves a broken engine
// behind.
func (p *Provisioner) DownloadRelease(ctx context.Context, url, destDir string) (string, error) {
	p.logger.Info("downloading engine release", slog.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("provision: building request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("provision: downloading %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provision: downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	tmpDir, err := os.MkdirTemp("", "engine-download-*")
	if err != nil {
		return "", fmt.Errorf("provision: creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, filepath.Base(url))
	if err := writeFile(archivePath, resp.Body); err != nil {
		return "", err
	}

	extractDir := filepath.Join(tmpDir, "extracted")
	if err := os.MkdirAll(extractDir, 0o755); err != nil {
		return "", fmt.Errorf("provision: creating extract dir: %w", err)
	}
	if err := extractArchive(archivePath, extractDir); err != nil {
		return "", err
	}

	binary, err := locateBinary(extractDir)
	if err != nil {
		return "", err
	}

	if err := os.Chmod(binary, 0o755); err != nil {
		return "", fmt.Errorf("provision: marking %s executable: %w", binary, err)
	}
	if err := p.verify(ctx, binary); err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("provision: creating %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(binary))
	if err := moveFile(binary, dest); err != nil {
		return "", err
	}
	if err := os.Chmod(dest, 0o755); err != nil {
		return "", fmt.Errorf("provision: marking %s executable: %w", dest, err)
	}

	p.logger.Info("engine installed", slog.String("path", dest))
	return dest, nil
}

// BuildFromSource clones the engine repository and compiles it with make.
// arch and comp map to the engine makefile's ARCH and COMP variables; empty
// values default to a portable x86-64 gcc build.
func (p *Provisioner) BuildFromSource(ctx context.Context, repoURL, destDir, arch, comp string) (string, error) {
	if arch == "" {
		arch = "x86-64"
	}
	if comp == "" {
		comp = "gcc"
	}

	tmpDir, err := os.MkdirTemp("", "engine-build-*")
	if err != nil {
		return "", fmt.Errorf("provision: creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	p.logger.Info("cloning engine source", slog.String("repo", repoURL))
	if err := p.runCommand(ctx, tmpDir, "git", "clone", "--depth", "1", repoURL, "engine"); err != nil {
		return "", fmt.Errorf("provision: cloning %s: %w", repoURL, err)
	}

	srcDir := filepath.Join(tmpDir, "engine", "src")
	p.logger.Info("building engine", slog.String("arch", arch), slog.String("comp", comp))
	if err := p.runCommand(ctx, srcDir, "make", "-j", "build", "ARCH="+arch, "COMP="+comp); err != nil {
		return "", fmt.Errorf("provision: building engine: %w", err)
	}

	binary, err := locateBinary(srcDir)
	if err != nil {
		return "", err
	}
	if err := p.verify(ctx, binary); err != nil {
		return "", err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("provision: creating %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(binary))
	if err := moveFile(binary, dest); err != nil {
		return "", err
	}
	if err := os.Chmod(dest, 0o755); err != nil {
		return "", fmt.Errorf("provision: marking %s executable: %w", dest, err)
	}

	p.logger.Info("engine built and installed", slog.String("path", dest))
	return dest, nil
}

// verify launches the binary briefly to confirm it is executable on this
// machine. A wrong-architecture download fails here, not at first analysis.
func (p *Provisioner) verify(ctx context.Context, binary string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("provision: verifying %s: %w", binary, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("provision: %s is not executable here: %w", binary, err)
	}
	io.WriteString(stdin, "quit\n")
	stdin.Close()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("provision: %s exited abnormally: %w", binary, err)
	}
	return nil
}

func extractArchive(archivePath, destDir string) error {
	name := strings.ToLower(archivePath)
	switch {
	case strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz"):
		return extractTar(archivePath, destDir, true)
	case strings.HasSuffix(name, ".tar"):
		return extractTar(archivePath, destDir, false)
	case strings.HasSuffix(name, ".zip"):
		return extractZip(archivePath, destDir)
	default:
		return fmt.Errorf("provision: unsupported archive format: %s", filepath.Base(archivePath))
	}
}

func extractTar(archivePath, destDir string, gzipped bool) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("provision: opening archive: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("provision: reading gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("provision: reading tar entry: %w", err)
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("provision: creating dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("provision: creating dir for %s: %w", target, err)
			}
			if err := writeFile(target, io.LimitReader(tr, maxBinarySize)); err != nil {
				return err
			}
			if err := os.Chmod(target, os.FileMode(hdr.Mode)&0o777); err != nil {
				return fmt.Errorf("provision: restoring mode of %s: %w", target, err)
			}
		}
	}
}

func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("provision: opening zip: %w", err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target, err := safeJoin(destDir, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("provision: creating dir %s: %w", target, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("provision: creating dir for %s: %w", target, err)
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("provision: opening zip entry %s: %w", entry.Name, err)
		}
		err = writeFile(target, io.LimitReader(rc, maxBinarySize))
		rc.Close()
		if err != nil {
			return err
		}
		if err := os.Chmod(target, entry.Mode()&0o777); err != nil {
			return fmt.Errorf("provision: restoring mode of %s: %w", target, err)
		}
	}
	return nil
}

// locateBinary finds the engine executable in an extracted tree: the
// largest regular file whose name mentions the engine. Release archives
// ship the binary beside docs and network files, so size is the reliable
// signal.
func locateBinary(root string) (string, error) {
	var best string
	var bestSize int64
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		name := strings.ToLower(info.Name())
		if strings.Contains(name, "stockfish") || strings.Contains(name, "engine") {
			if info.Size() > bestSize {
				best = path
				bestSize = info.Size()
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("provision: scanning %s: %w", root, err)
	}
	if best == "" {
		return "", fmt.Errorf("provision: no engine binary found under %s", root)
	}
	return best, nil
}

func safeJoin(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("provision: archive entry %q escapes destination", name)
	}
	return target, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("provision: creating %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("provision: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("provision: closing %s: %w", path, err)
	}
	return nil
}

// moveFile renames, falling back to copy when the temp dir sits on another
// filesystem.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("provision: opening %s: %w", src, err)
	}
	defer in.Close()
	return writeFile(dest, in)
}

func runCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
