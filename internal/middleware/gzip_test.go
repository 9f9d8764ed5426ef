package middleware

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoJSON mirrors the request body back inside a JSON envelope and sets
// Content-Length the way handler.writeJSON does.
func echoJSON(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	out, _ := json.Marshal(map[string]string{"received": string(body)})
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func gzipBytes(t *testing.T, s string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return &buf
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	var r io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(res.Body)
		require.NoError(t, err)
		defer gr.Close()
		r = gr
	}
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestGzipMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		compressBody   bool
		acceptEncoding string
		wantEncoding   string
	}{
		{
			name:           "compressed response for gzip client",
			body:           `{"product_id":1,"quantity":2}`,
			acceptEncoding: "gzip, deflate, br",
			wantEncoding:   "gzip",
		},
		{
			name:         "plain response without accept-encoding",
			body:         `{"amount":"50.00"}`,
			wantEncoding: "",
		},
		{
			name:           "compressed request and response",
			body:           `{"cart_item_ids":[1,2,3]}`,
			compressBody:   true,
			acceptEncoding: "gzip",
			wantEncoding:   "gzip",
		},
		{
			name:         "compressed request, plain response",
			body:         `{"email":"a@b.co"}`,
			compressBody: true,
			wantEncoding: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var reqBody io.Reader = strings.NewReader(tt.body)
			if tt.compressBody {
				reqBody = gzipBytes(t, tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/cart", reqBody)
			req.Header.Set("Content-Type", "application/json")
			if tt.compressBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoJSON)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			require.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
			assert.Equal(t, tt.wantEncoding, res.Header.Get("Content-Encoding"))
			if tt.wantEncoding == "gzip" {
				assert.Empty(t, res.Header.Get("Content-Length"), "length of the uncompressed body must not leak")
				assert.Equal(t, "Accept-Encoding", res.Header.Get("Vary"))
			}

			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(readBody(t, res)), &got))
			assert.Equal(t, tt.body, got["received"])
		})
	}
}

func TestGzipMiddlewareRejectsBrokenBody(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodPost, "/auth", strings.NewReader("not gzip at all"))
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Accept-Encoding", "gzip")

	w := httptest.NewRecorder()
	GzipMiddleware(next).ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.JSONEq(t, `{"message":"invalid gzip body"}`, w.Body.String())
}

func TestGzipMiddlewareSkipsBodylessResponses(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotModified} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})

			req := httptest.NewRequest(http.MethodDelete, "/cart/1", nil)
			req.Header.Set("Accept-Encoding", "gzip")

			w := httptest.NewRecorder()
			GzipMiddleware(next).ServeHTTP(w, req)

			assert.Equal(t, status, w.Code)
			assert.Empty(t, w.Header().Get("Content-Encoding"))
			assert.Empty(t, w.Header().Get("Vary"))
			assert.Zero(t, w.Body.Len(), "body must stay empty, got %x", w.Body.Bytes())
		})
	}
}
