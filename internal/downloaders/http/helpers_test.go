package splithttp

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tanq16/splitdl/internal/utils"
)

type recordingSink struct {
	mu     sync.Mutex
	events []utils.Event
}

func (s *recordingSink) Emit(e utils.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) kinds(kind utils.EventKind) []utils.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []utils.Event
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// doerFunc adapts a function to utils.HTTPDoer.
type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testContent(n int) []byte {
	rng := rand.New(rand.NewPCG(42, uint64(n)))
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(rng.UintN(256))
	}
	return data
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// newRangeServer serves content with full Range support via http.ServeContent.
// fail, when non-nil, is consulted first and may take over the request.
func newRangeServer(t *testing.T, content []byte, fail func(w http.ResponseWriter, r *http.Request) bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail != nil && fail(w, r) {
			return
		}
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(server.Close)
	return server
}

// newPlainServer advertises no range support and always sends the whole body.
func newPlainServer(t *testing.T, content []byte, gets *[]string) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		if r.Method == http.MethodHead {
			return
		}
		mu.Lock()
		*gets = append(*gets, r.Header.Get("Range"))
		mu.Unlock()
		w.Write(content)
	}))
	t.Cleanup(server.Close)
	return server
}

// dropConnection closes the underlying connection without a response.
func dropConnection(t *testing.T, w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		t.Errorf("response writer does not support hijacking")
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		t.Errorf("hijack failed: %v", err)
		return
	}
	conn.Close()
}

func headResponse(header http.Header) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}
