package cloudinary

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{
		"timestamp": "1315060510",
		"public_id": "sample",
		"api_key":   "key",
		"file":      "ignored",
	})
	// sha1("public_id=sample&timestamp=1315060510secret")
	assert.Len(t, got, 40)
	assert.Equal(t, got, c.sign(map[string]string{"public_id": "sample", "timestamp": "1315060510"}))
}

func TestSaveImage(t *testing.T) {
	var gotPath string
	var fields map[string]string
	var fileBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		b, _ := io.ReadAll(f)
		fileBody = string(b)
		_, _ = w.Write([]byte(`{"public_id":"leave_images/abc","secure_url":"https://res.example/abc.png"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "leave_images")
	c.APIBase = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.SaveImage(context.Background(), "abc.png", []byte("PNG"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/abc.png", url)
	assert.Equal(t, "/demo/image/upload", gotPath)
	assert.Equal(t, "PNG", fileBody)
	assert.Equal(t, "abc", fields["public_id"])
	assert.Equal(t, "leave_images", fields["folder"])
	assert.Equal(t, "1700000000", fields["timestamp"])
	assert.Equal(t, c.sign(map[string]string{"folder": "leave_images", "public_id": "abc", "timestamp": "1700000000"}), fields["signature"])
}

func TestUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.APIBase = srv.URL
	_, err := c.SaveImage(context.Background(), "a.png", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.False(t, (&Client{}).Configured())
	assert.True(t, c.Configured())
}
