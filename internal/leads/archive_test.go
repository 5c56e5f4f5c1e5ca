package leads

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectArchiveRetriesBucketCheckAfterFailure(t *testing.T) {
	var heads, puts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		switch r.Method {
		case http.MethodHead:
			if heads.Add(1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			puts.Add(1)
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	archive, err := NewObjectArchive(ArchiveConfig{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "key",
		SecretKey: "secret",
		Bucket:    "leads",
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.Error(t, archive.Put(ctx, "a", Form{"name": "Ann"}))
	assert.Equal(t, int32(0), puts.Load())

	require.NoError(t, archive.Put(ctx, "b", Form{"name": "Bo"}))
	require.NoError(t, archive.Put(ctx, "c", Form{"name": "Cy"}))
	assert.Equal(t, int32(2), heads.Load(), "bucket is checked again only after a failure")
	assert.Equal(t, int32(2), puts.Load())
}
