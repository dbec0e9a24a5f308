// Package artifact fetches the installer tarball once on the machine running
// pexm so it can be copied to every installer host.
package artifact

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/mholt/archiver/v3"
	"github.com/schollz/progressbar/v3"

	"github.com/mensylisir/pexm/pkg/common"
	"github.com/mensylisir/pexm/pkg/errors/errdefs"
	"github.com/mensylisir/pexm/pkg/logger"
	"github.com/mensylisir/pexm/pkg/util"
)

// InstallerURL renders urlTemplate with the normalized version and platform.
// An empty template selects the public release bucket.
func InstallerURL(urlTemplate, version, platform string) (string, error) {
	if urlTemplate == "" {
		urlTemplate = common.DefaultInstallerURLTemplate
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return "", errdefs.NewConfigError("invalid version %q: %v", version, err)
	}
	if platform == "" {
		return "", errdefs.NewConfigError("installer platform is unknown")
	}
	return util.RenderTemplate(urlTemplate, map[string]string{
		"Version":  v.String(),
		"Platform": platform,
	})
}

// TarballName is the release file name of version on platform. The version
// is normalized the way InstallerURL renders it.
func TarballName(version, platform string) string {
	if v, err := semver.NewVersion(version); err == nil {
		version = v.String()
	}
	return fmt.Sprintf("puppet-enterprise-%s-%s.tar.gz", version, platform)
}

// StagedName is the file name a download from rawURL is staged under: the
// last path element of the URL when it names a gzipped tarball, fallback
// otherwise.
func StagedName(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	name := path.Base(u.Path)
	if strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".tgz") {
		return name
	}
	return fallback
}

// Stager downloads installer tarballs into a local directory.
type Stager struct {
	Client *http.Client
	// Progress receives the download progress bar. Nil disables it.
	Progress io.Writer
}

func NewStager() *Stager {
	return &Stager{
		Client:   &http.Client{Timeout: 30 * time.Minute},
		Progress: os.Stderr,
	}
}

// Fetch downloads url to localPath unless a valid tarball is already there.
// The result is verified to contain the installer entry point.
func (s *Stager) Fetch(ctx context.Context, url, localPath string) error {
	log := logger.Get().With("artifact", filepath.Base(localPath))
	if err := Verify(localPath); err == nil {
		log.Infof("Using cached installer at %s", localPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return &errdefs.IOError{Op: "mkdir", Path: filepath.Dir(localPath), Err: err}
	}
	if err := s.download(ctx, url, localPath); err != nil {
		return err
	}
	if err := Verify(localPath); err != nil {
		_ = os.Remove(localPath)
		return err
	}
	log.Successf("Downloaded installer from %s", url)
	return nil
}

func (s *Stager) download(ctx context.Context, url, localPath string) error {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &errdefs.IOError{Op: "download", Path: url, Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return &errdefs.IOError{Op: "download", Path: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &errdefs.IOError{Op: "download", Path: url, Err: fmt.Errorf("bad status: %s", resp.Status)}
	}

	// download next to the target so a partial file never looks cached
	tmpPath := localPath + ".part"
	out, err := os.Create(tmpPath)
	if err != nil {
		return &errdefs.IOError{Op: "create", Path: tmpPath, Err: err}
	}

	var dst io.Writer = out
	var bar *progressbar.ProgressBar
	if s.Progress != nil {
		progress := s.Progress
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", filepath.Base(localPath))),
			progressbar.OptionSetWriter(progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(progress, "\n")
			}),
			progressbar.OptionSpinnerType(14),
		)
		dst = io.MultiWriter(out, bar)
	}

	_, copyErr := io.Copy(dst, resp.Body)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		if bar != nil {
			_ = bar.Clear()
		}
		_ = os.Remove(tmpPath)
		return &errdefs.IOError{Op: "download", Path: url, Err: copyErr}
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := os.Rename(tmpPath, localPath); err != nil {
		_ = os.Remove(tmpPath)
		return &errdefs.IOError{Op: "rename", Path: localPath, Err: err}
	}
	return nil
}

// Verify checks that path is a readable tarball containing the installer.
func Verify(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &errdefs.IOError{Op: "stat", Path: path, Err: err}
	}
	if info.IsDir() {
		return &errdefs.IOError{Op: "verify", Path: path, Err: fmt.Errorf("is a directory")}
	}

	found := false
	err = archiver.Walk(path, func(f archiver.File) error {
		if f.IsDir() || f.Name() != common.InstallerBinaryName {
			return nil
		}
		// The installer is unpacked with one leading directory stripped.
		if h, ok := f.Header.(*tar.Header); ok && entryDepth(h.Name) != 1 {
			return nil
		}
		found = true
		return archiver.ErrStopWalk
	})
	if err != nil {
		return &errdefs.IOError{Op: "verify", Path: path, Err: err}
	}
	if !found {
		return &errdefs.IOError{Op: "verify", Path: path, Err: fmt.Errorf("%s not found under a top-level directory of the archive", common.InstallerBinaryName)}
	}
	return nil
}

func entryDepth(name string) int {
	name = strings.Trim(path.Clean("/"+name), "/")
	return strings.Count(name, "/")
}
