package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/config"
)

const page = `<html><head><title>ニュース</title></head><body><p>きょうは雨が降りました。あしたは晴れるでしょう。</p></body></html>`

func newClient() *Client {
	return New(config.HTTP{Timeout: 5 * time.Second, UserAgent: "easyquiz-test", MaxBodySize: 1024 * 1024})
}

func TestGetUTF8(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer srv.Close()

	body, err := newClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
	assert.Equal(t, "easyquiz-test", gotUA)
}

func TestGetShiftJISFromHeader(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().String(page)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=Shift_JIS")
		w.Write([]byte(encoded))
	}))
	defer srv.Close()

	body, err := newClient().Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, page, string(body))
}

func TestGetNonOKIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newClient().Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
}

func TestGetUnreachableIsConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newClient().Get(context.Background(), url)
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
}

func TestGetBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	c := newClient()
	c.MaxBodySize = 16
	_, err := c.Get(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestDecodeDetectsUTF8(t *testing.T) {
	out, err := Decode([]byte(page), "")
	require.NoError(t, err)
	assert.Equal(t, page, string(out))
}
