// Package fetch downloads and unpacks release source archives.
package fetch

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/containerd/log"
	"github.com/docker/go-units"
	"github.com/opencontainers/go-digest"
	"github.com/ulikunitz/xz"
)

// Source describes one release archive.
type Source struct {
	URL    string // archive URL
	Root   string // top-level directory inside the archive
	Digest string // optional "sha256:<hex>" of the archive
}

// Fetcher downloads archives into a cache directory and extracts them.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// New creates a Fetcher keeping downloaded archives in cacheDir.
func New(cacheDir string, opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
		cacheDir: cacheDir,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch makes destDir hold the contents of src.Root. A non-empty destDir
// is assumed to be a previous extraction and is left alone.
func (f *Fetcher) Fetch(ctx context.Context, src Source, destDir string) error {
	if entries, err := os.ReadDir(destDir); err == nil && len(entries) > 0 {
		log.G(ctx).WithField("dir", destDir).Debug("source already extracted")
		return nil
	}

	archive, err := f.download(ctx, src)
	if err != nil {
		return err
	}

	parent := filepath.Dir(destDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return err
	}
	tmpDir, err := os.MkdirTemp(parent, ".extract-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	if err := Extract(archive, tmpDir); err != nil {
		return fmt.Errorf("extract %s: %w", filepath.Base(archive), err)
	}

	extracted := filepath.Join(tmpDir, src.Root)
	if _, err := os.Stat(extracted); err != nil {
		return fmt.Errorf("extract %s: top-level directory %q missing: %w", filepath.Base(archive), src.Root, err)
	}
	os.RemoveAll(destDir)
	if err := os.Rename(extracted, destDir); err != nil {
		return err
	}
	log.G(ctx).WithField("dir", destDir).Info("source extracted")
	return nil
}

// download returns the path of the cached archive of src, downloading it
// first when needed.
func (f *Fetcher) download(ctx context.Context, src Source) (string, error) {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(f.cacheDir, archiveName(src.URL))

	if _, err := os.Stat(dest); err == nil {
		if err := verifyFile(dest, src.Digest); err == nil {
			log.G(ctx).WithField("archive", dest).Debug("using cached archive")
			return dest, nil
		}
		os.Remove(dest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", err
	}
	log.G(ctx).WithField("url", src.URL).Info("downloading source")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", src.URL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.cacheDir, ".download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var verifier digest.Verifier
	if src.Digest != "" {
		dgst, err := digest.Parse(src.Digest)
		if err != nil {
			tmp.Close()
			return "", fmt.Errorf("fetch %s: %w", src.URL, err)
		}
		verifier = dgst.Verifier()
		w = io.MultiWriter(tmp, verifier)
	}

	n, err := io.Copy(w, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	if verifier != nil && !verifier.Verified() {
		return "", fmt.Errorf("fetch %s: %w", src.URL, ErrDigestMismatch)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	log.G(ctx).WithFields(log.Fields{
		"archive": dest,
		"size":    units.HumanSize(float64(n)),
	}).Info("source downloaded")
	return dest, nil
}

// ErrDigestMismatch is returned when an archive does not match its
// expected digest.
var ErrDigestMismatch = errors.New("digest mismatch")

func verifyFile(file, expected string) error {
	if expected == "" {
		return nil
	}
	dgst, err := digest.Parse(expected)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	verifier := dgst.Verifier()
	if _, err := io.Copy(verifier, f); err != nil {
		return err
	}
	if !verifier.Verified() {
		return ErrDigestMismatch
	}
	return nil
}

// archiveName derives a cache file name from url. GitHub archive names
// ("r3.4.0.tar.gz") are not unique across repositories, so a short hash
// of the URL is prepended.
func archiveName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:4]) + "-" + path.Base(url)
}

// Extract unpacks the tar archive at file into dir. The compression is
// picked from the file name: .tar.gz/.tgz, .tar.xz or plain .tar.
func Extract(file, dir string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader
	name := strings.ToLower(file)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		r = xr
	case strings.HasSuffix(name, ".tar"):
		r = f
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(file))
	}
	return untar(r, dir)
}

func untar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar entry: %w", err)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" || name == "." {
			continue
		}
		if !filepath.IsLocal(name) {
			return fmt.Errorf("tar entry %q escapes the destination", hdr.Name)
		}
		target := filepath.Join(dir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(hdr.Linkname) || !filepath.IsLocal(filepath.Join(filepath.Dir(name), hdr.Linkname)) {
				return fmt.Errorf("tar symlink %q -> %q escapes the destination", hdr.Name, hdr.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return err
			}
		default:
			// GitHub archives carry a pax global header with the commit id.
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
