package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/keg/internal/adapters/fetch"
	"go.trai.ch/keg/internal/core/domain"
	"go.trai.ch/keg/internal/core/ports"
	"go.trai.ch/keg/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func fastFetcher() *fetch.Fetcher {
	return fetch.New(fetch.WithRetry(3, time.Millisecond))
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "a-1.0.0.tar.gz")
	require.NoError(t, os.WriteFile(artifact, []byte("payload"), 0o600))

	tests := []struct {
		name string
		url  string
	}{
		{name: "bare path", url: artifact},
		{name: "file url", url: "file://" + artifact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, declared, err := fastFetcher().Fetch(context.Background(), tt.url)
			require.NoError(t, err)
			assert.Equal(t, []byte("payload"), data)
			assert.Empty(t, declared)
		})
	}
}

func TestFetch_FileSidecar(t *testing.T) {
	dir := t.TempDir()
	artifact := filepath.Join(dir, "a.tar")
	require.NoError(t, os.WriteFile(artifact, []byte("payload"), 0o600))
	want := digest.FromString("payload")
	require.NoError(t, os.WriteFile(artifact+fetch.SidecarSuffix, []byte(want.Encoded()+"  a.tar\n"), 0o600))

	_, declared, err := fastFetcher().Fetch(context.Background(), artifact)
	require.NoError(t, err)
	assert.Equal(t, want.String(), declared)
}

func TestFetch_FileErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := fastFetcher().Fetch(context.Background(), filepath.Join(dir, "missing.tar"))
	require.ErrorIs(t, err, domain.ErrIO)

	artifact := filepath.Join(dir, "a.tar")
	require.NoError(t, os.WriteFile(artifact, []byte("payload"), 0o600))
	require.NoError(t, os.WriteFile(artifact+fetch.SidecarSuffix, []byte("not-a-digest"), 0o600))
	_, _, err = fastFetcher().Fetch(context.Background(), artifact)
	require.ErrorIs(t, err, domain.ErrIntegrity)

	_, _, err = fastFetcher().Fetch(context.Background(), "ftp://example.com/a.tar")
	require.ErrorIs(t, err, domain.ErrIO)
	u, ok := domain.MetadataValue(err, "url")
	require.True(t, ok)
	assert.Equal(t, "ftp://example.com/a.tar", u)
}

func TestFetch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := fastFetcher().Fetch(ctx, filepath.Join(t.TempDir(), "a.tar"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_HTTP(t *testing.T) {
	want := digest.FromString("remote payload")
	mux := http.NewServeMux()
	mux.HandleFunc("/a.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "keg", r.UserAgent())
		_, _ = w.Write([]byte("remote payload"))
	})
	mux.HandleFunc("/a.tar.gz.sha256", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(want.String()))
	})
	mux.HandleFunc("/b.tar.gz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("no sidecar"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	data, declared, err := fastFetcher().Fetch(context.Background(), srv.URL+"/a.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote payload"), data)
	assert.Equal(t, want.String(), declared)

	data, declared, err = fastFetcher().Fetch(context.Background(), srv.URL+"/b.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, []byte("no sidecar"), data)
	assert.Empty(t, declared)

	_, _, err = fastFetcher().Fetch(context.Background(), srv.URL+"/missing.tar.gz")
	require.ErrorIs(t, err, domain.ErrIO)
}

func TestFetch_HTTPRetriesTransientFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	vertex := mocks.NewMockVertex(ctrl)
	vertex.EXPECT().Log(domain.LogLevelWarn, gomock.Any()).Times(2)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a.tar" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	t.Cleanup(srv.Close)

	ctx := ports.ContextWithVertex(context.Background(), vertex)
	data, _, err := fastFetcher().Fetch(ctx, srv.URL+"/a.tar")
	require.NoError(t, err)
	assert.Equal(t, []byte("finally"), data)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_HTTPGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, _, err := fastFetcher().Fetch(context.Background(), srv.URL+"/a.tar")
	require.ErrorIs(t, err, domain.ErrIO)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_HTTPClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, _, err := fastFetcher().Fetch(context.Background(), srv.URL+"/a.tar")
	require.ErrorIs(t, err, domain.ErrIO)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_HTTPDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := fastFetcher().Fetch(ctx, srv.URL+"/slow.tar")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseSidecar(t *testing.T) {
	d := digest.FromString("x")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "prefixed", in: d.String() + "\n", want: d.String()},
		{name: "sha256sum format", in: d.Encoded() + "  x.tar.gz\n", want: d.String()},
		{name: "upper case hex", in: "  " + strings.ToUpper(d.Encoded()), want: d.String()},
		{name: "empty", in: "\n", wantErr: true},
		{name: "short", in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetch.ParseSidecar([]byte(tt.in))
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrIntegrity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
