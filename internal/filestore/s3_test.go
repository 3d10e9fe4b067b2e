package filestore

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the path-style calls S3 makes: bucket creation, object
// put/get/delete and ListObjectsV2.
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]map[string][]byte
	creates int
}

func newFakeS3(t *testing.T) (*fakeS3, *httptest.Server) {
	f := &fakeS3{buckets: make(map[string]map[string][]byte)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

type s3Object struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

type listBucketResult struct {
	XMLName     xml.Name   `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListBucketResult"`
	Name        string     `xml:"Name"`
	Prefix      string     `xml:"Prefix"`
	KeyCount    int        `xml:"KeyCount"`
	MaxKeys     int        `xml:"MaxKeys"`
	IsTruncated bool       `xml:"IsTruncated"`
	Contents    []s3Object `xml:"Contents"`
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	objects, exists := f.buckets[bucket]

	switch {
	case key == "" && r.Method == http.MethodPut:
		f.creates++
		if exists {
			writeS3Error(w, http.StatusConflict, "BucketAlreadyOwnedByYou")
			return
		}
		f.buckets[bucket] = make(map[string][]byte)
		w.WriteHeader(http.StatusOK)

	case !exists:
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")

	case key == "" && r.Method == http.MethodGet:
		prefix := r.URL.Query().Get("prefix")
		res := listBucketResult{Name: bucket, Prefix: prefix, MaxKeys: 1000}
		for k, v := range objects {
			if strings.HasPrefix(k, prefix) {
				res.Contents = append(res.Contents, s3Object{Key: k, Size: len(v)})
			}
		}
		sort.Slice(res.Contents, func(i, j int) bool { return res.Contents[i].Key < res.Contents[j].Key })
		res.KeyCount = len(res.Contents)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)

	case r.Method == http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		objects[key] = body
		w.Header().Set("ETag", `"fake"`)
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet:
		body, ok := objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		_, _ = w.Write(body)

	case r.Method == http.MethodDelete:
		delete(objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func (f *fakeS3) keys(bucket string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.buckets[bucket] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newTestS3(t *testing.T, endpoint string) *S3 {
	t.Helper()
	ctx := context.Background()
	client, err := NewS3Client(ctx, S3Config{
		Bucket:    "homework",
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "test",
		SecretKey: "test",
	})
	require.NoError(t, err)
	store, err := NewS3(ctx, client, "homework")
	require.NoError(t, err)
	return store
}

func TestS3(t *testing.T) {
	_, srv := newFakeS3(t)
	testStore(t, newTestS3(t, srv.URL))
}

func TestS3ExistingBucket(t *testing.T) {
	fake, srv := newFakeS3(t)
	first := newTestS3(t, srv.URL)
	require.NoError(t, first.Put(context.Background(), "leave_images/a.png", strings.NewReader("png")))

	newTestS3(t, srv.URL)
	assert.Equal(t, 2, fake.creates)
	assert.Equal(t, []string{"leave_images/a.png"}, fake.keys("homework"), "a second start keeps the objects")
}

func TestS3BucketFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeS3Error(w, http.StatusForbidden, "AccessDenied")
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client, err := NewS3Client(ctx, S3Config{Region: "us-east-1", Endpoint: srv.URL, AccessKey: "test", SecretKey: "test"})
	require.NoError(t, err)
	_, err = NewS3(ctx, client, "homework")
	assert.ErrorContains(t, err, "create bucket homework")
}
