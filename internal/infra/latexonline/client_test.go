package latexonline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory artifact.Store recording removals.
type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	presign  string
	removed  []string
	putErr   error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[key], nil
}

func (m *memStore) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return m.presign + "/" + key, nil
}

func (m *memStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, key)
	delete(m.objects, key)
	return nil
}

func TestCompileSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("url"))
		w.Write([]byte("%PDF-1.5 fake pdf"))
	}))
	defer srv.Close()

	store := newMemStore()
	c := New(srv.URL, store, nil)

	res := c.Compile(context.Background(), `\documentclass{article}\begin{document}x\end{document}`, "abc")
	require.True(t, res.Success)
	assert.Equal(t, []byte("%PDF-1.5 fake pdf"), res.PDF)

	// Temporary object deleted exactly once.
	require.Len(t, store.removed, 1)
	assert.Empty(t, store.objects)
}

func TestCompileErrorStillCleansUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "! LaTeX Error: something broke", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	store := newMemStore()
	c := New(srv.URL, store, nil)

	res := c.Compile(context.Background(), `\documentclass{article}`, "abc")
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "status 422")

	require.Len(t, store.removed, 1)
	assert.Empty(t, store.objects)
}

func TestCompileEmptyCode(t *testing.T) {
	store := newMemStore()
	c := New("http://example.invalid", store, nil)

	res := c.Compile(context.Background(), "   ", "abc")
	assert.False(t, res.Success)
	assert.Equal(t, "LaTeX code is empty", res.Err)
	assert.Empty(t, store.removed)
}

func TestCompileUploadFailure(t *testing.T) {
	store := newMemStore()
	store.putErr = assert.AnError
	c := New("http://example.invalid", store, nil)

	res := c.Compile(context.Background(), `\documentclass{article}`, "abc")
	assert.False(t, res.Success)
	assert.Equal(t, "could not stage LaTeX source for compilation", res.Err)
	// Nothing was stored, nothing to clean up.
	assert.Empty(t, store.removed)
}

func TestCompileEmptyResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := newMemStore()
	c := New(srv.URL, store, nil)

	res := c.Compile(context.Background(), `\documentclass{article}`, "abc")
	assert.False(t, res.Success)
	assert.Equal(t, "LaTeX compiler returned an empty response", res.Err)
	require.Len(t, store.removed, 1)
}
