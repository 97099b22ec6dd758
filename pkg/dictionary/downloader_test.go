package dictionary

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

func tarball(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "README.md", Mode: 0o644, Size: 2, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}))
	_, err = tw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestEnsureDictionaryLocalCache(t *testing.T) {
	path := writeDict(t, dictContent)
	d := &Downloader{ReleaseURL: "http://127.0.0.1:1/unused"}
	require.NoError(t, d.EnsureDictionary(context.Background(), path))
}

func TestEnsureDictionaryDownloads(t *testing.T) {
	archive := tarball(t, "jmdict-eng-common-3.6.1.json", dictContent)

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/release", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"assets":[
			{"name":"jmdict-eng-3.6.1.json.tgz","browser_download_url":"` + srv.URL + `/wrong"},
			{"name":"jmdict-eng-common-3.6.1.json.tgz","browser_download_url":"` + srv.URL + `/asset"}
		]}`))
	})
	mux.HandleFunc("/asset", func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	})

	path := filepath.Join(t.TempDir(), "dict", "jmdict.json")
	d := &Downloader{ReleaseURL: srv.URL + "/release"}
	require.NoError(t, d.EnsureDictionary(context.Background(), path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, dictContent, string(raw))

	ix, err := Open(path)
	require.NoError(t, err)
	_, ok := ix.Definition("犬", "いぬ")
	assert.True(t, ok)
}

func TestEnsureDictionaryReleaseUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	d := &Downloader{ReleaseURL: srv.URL}
	err := d.EnsureDictionary(context.Background(), filepath.Join(t.TempDir(), "jmdict.json"))
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
}
