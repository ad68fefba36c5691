package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/testnetoor/pkg/config"
)

// fakeBucket is a minimal path-style S3 endpoint backed by a map.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = string(body)
		b.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := b.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)

			return
		}

		w.Header().Set("Content-Type", b.types[r.URL.Path])
		_, _ = io.WriteString(w, body)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestArchiver(t *testing.T, prefix string) (Archiver, *fakeBucket) {
	t.Helper()

	bucket := &fakeBucket{objects: map[string]string{}, types: map[string]string{}}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return New(log, config.ArchiveConfig{S3: &config.S3ArchiveConfig{
		Enabled:         true,
		EndpointURL:     srv.URL,
		Bucket:          "reports",
		Prefix:          prefix,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		ForcePathStyle:  true,
	}}), bucket
}

func TestS3Archiver_RoundTrip(t *testing.T) {
	a, bucket := newTestArchiver(t, "testnets/")
	require.True(t, a.Enabled())

	ctx := context.Background()

	location, err := a.ArchiveReport(ctx, "c-1", "*Environment Comparison*\n")
	require.NoError(t, err)
	assert.Equal(t, "s3://reports/testnets/comparisons/c-1.md", location)

	assert.Equal(t, "*Environment Comparison*\n", bucket.objects["/reports/testnets/comparisons/c-1.md"])
	assert.Equal(t, reportMediaType, bucket.types["/reports/testnets/comparisons/c-1.md"])

	got, err := a.FetchReport(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "*Environment Comparison*\n", got)

	_, err = a.FetchReport(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestReportKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "default prefix", prefix: "", want: "testnetoor/comparisons/abc.md"},
		{name: "custom prefix", prefix: "team/reports", want: "team/reports/comparisons/abc.md"},
		{name: "slashes trimmed", prefix: "/team/", want: "team/comparisons/abc.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &s3Archiver{cfg: &config.S3ArchiveConfig{Prefix: tt.prefix}}
			assert.Equal(t, tt.want, a.reportKey("abc"))
		})
	}
}

func TestNew_Disabled(t *testing.T) {
	log := logrus.New()

	for _, cfg := range []config.ArchiveConfig{
		{},
		{S3: &config.S3ArchiveConfig{Enabled: false, Bucket: "reports"}},
	} {
		a := New(log, cfg)
		assert.False(t, a.Enabled())

		location, err := a.ArchiveReport(context.Background(), "c-1", "report")
		require.NoError(t, err)
		assert.Empty(t, location)

		_, err = a.FetchReport(context.Background(), "c-1")
		assert.ErrorIs(t, err, ErrNotArchived)
	}
}
