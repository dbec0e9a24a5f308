package artifact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mholt/archiver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensylisir/pexm/pkg/errors/errdefs"
)

func makeTarball(t *testing.T, dir string, withInstaller bool) string {
	t.Helper()
	src := filepath.Join(dir, "puppet-enterprise-2019.8.1-el-7-x86_64")
	require.NoError(t, os.MkdirAll(src, 0755))
	name := "README"
	if withInstaller {
		name = "puppet-enterprise-installer"
	}
	require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte("#!/bin/sh\n"), 0755))

	out := filepath.Join(dir, "src.tar.gz")
	require.NoError(t, archiver.Archive([]string{src}, out))
	return out
}

func TestInstallerURL(t *testing.T) {
	url, err := InstallerURL("", "v2019.8.1", "el-7-x86_64")
	require.NoError(t, err)
	assert.Equal(t, "https://s3.amazonaws.com/pe-builds/released/2019.8.1/puppet-enterprise-2019.8.1-el-7-x86_64.tar.gz", url)

	url, err = InstallerURL("https://mirror.local/{{ .Platform }}/{{ .Version }}.tgz", "2021.7.0", "ubuntu-20.04-amd64")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.local/ubuntu-20.04-amd64/2021.7.0.tgz", url)
}

func TestInstallerURL_Invalid(t *testing.T) {
	_, err := InstallerURL("", "latest", "el-7-x86_64")
	assert.True(t, errdefs.IsConfig(err))

	_, err = InstallerURL("", "2019.8.1", "")
	assert.True(t, errdefs.IsConfig(err))
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	good := makeTarball(t, filepath.Join(dir, "good"), true)
	assert.NoError(t, Verify(good))

	bad := makeTarball(t, filepath.Join(dir, "bad"), false)
	err := Verify(bad)
	require.Error(t, err)
	assert.True(t, errdefs.IsIO(err))

	assert.Error(t, Verify(filepath.Join(dir, "missing.tar.gz")))
}

func TestVerify_InstallerAtArchiveRoot(t *testing.T) {
	dir := t.TempDir()
	installer := filepath.Join(dir, "puppet-enterprise-installer")
	require.NoError(t, os.WriteFile(installer, []byte("#!/bin/sh\n"), 0755))
	flat := filepath.Join(dir, "flat.tar.gz")
	require.NoError(t, archiver.Archive([]string{installer}, flat))

	err := Verify(flat)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top-level directory")
}

func TestTarballName(t *testing.T) {
	assert.Equal(t, "puppet-enterprise-2019.8.1-el-7-x86_64.tar.gz", TarballName("2019.8.1", "el-7-x86_64"))
	assert.Equal(t, "puppet-enterprise-2019.8.1-el-7-x86_64.tar.gz", TarballName("v2019.8.1", "el-7-x86_64"))
	assert.Equal(t, "puppet-enterprise-latest-sles-12.tar.gz", TarballName("latest", "sles-12"))
}

func TestStagedName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://mirror.local/pe/puppet-enterprise-2019.8.1-el-7-x86_64.tar.gz", "puppet-enterprise-2019.8.1-el-7-x86_64.tar.gz"},
		{"https://mirror.local/pe/latest.tgz?token=abc", "latest.tgz"},
		{"https://mirror.local/download?id=42", "fallback.tar.gz"},
		{"https://mirror.local/", "fallback.tar.gz"},
		{"://bad", "fallback.tar.gz"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, StagedName(tt.url, "fallback.tar.gz"))
		})
	}
}

func TestStagerFetch_DownloadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	tarball := makeTarball(t, filepath.Join(dir, "src"), true)
	payload, err := os.ReadFile(tarball)
	require.NoError(t, err)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	s := &Stager{Client: srv.Client()}
	dest := filepath.Join(dir, "staging", TarballName("2019.8.1", "el-7-x86_64"))

	require.NoError(t, s.Fetch(context.Background(), srv.URL, dest))
	require.NoError(t, s.Fetch(context.Background(), srv.URL, dest))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestStagerFetch_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "x.tar.gz")
	err := (&Stager{Client: srv.Client()}).Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.True(t, errdefs.IsIO(err))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestStagerFetch_RejectsArchiveWithoutInstaller(t *testing.T) {
	dir := t.TempDir()
	tarball := makeTarball(t, filepath.Join(dir, "src"), false)
	payload, err := os.ReadFile(tarball)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(dir, "staging", "pe.tar.gz")
	err = (&Stager{Client: srv.Client()}).Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}
