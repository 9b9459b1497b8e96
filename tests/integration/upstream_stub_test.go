package integration

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"
)

// sambaStub 模拟 SAMBA 网页前端：按路径返回目录页或文件内容，并记录每次请求。
type sambaStub struct {
	server   *http.Server
	listener net.Listener
	URL      string

	mu       sync.Mutex
	pages    map[string]string
	files    map[string][]byte
	requests []RecordedRequest
	// dropNext 表示接下来多少次请求直接断开连接，用于触发重试。
	dropNext int
	username string
	password string
}

// RecordedRequest 捕获请求的方法、路径与关键请求头。
type RecordedRequest struct {
	Method    string
	Path      string
	RequestID string
	UserAgent string
	Auth      bool
}

func newSambaStub(t *testing.T) *sambaStub {
	t.Helper()

	stub := &sambaStub{
		pages: map[string]string{
			"/share/": folderPage(
				[]string{"Movies/", "Music/"},
				map[string]string{"notes.txt": "1.5 KB"},
			),
			"/share/Movies/": folderPage(
				nil,
				map[string]string{"a.mkv": "700 MB"},
			),
			"/share/Music/": folderPage(nil, nil),
		},
		files: map[string][]byte{
			"/share/notes.txt": []byte("remember the milk"),
		},
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start upstream stub listener: %v", err)
	}
	stub.listener = listener
	stub.URL = "http://" + listener.Addr().String()
	stub.server = &http.Server{Handler: http.HandlerFunc(stub.serve)}

	go func() {
		_ = stub.server.Serve(listener)
	}()
	t.Cleanup(stub.Close)
	return stub
}

func (s *sambaStub) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, hasAuth := r.BasicAuth()

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: r.Header.Get("X-Request-ID"),
		UserAgent: r.Header.Get("User-Agent"),
		Auth:      hasAuth,
	})
	drop := s.dropNext > 0
	if drop {
		s.dropNext--
	}
	page, isPage := s.pages[r.URL.Path]
	file, isFile := s.files[r.URL.Path]
	needAuth := s.username != ""
	s.mu.Unlock()

	if drop {
		hijackAndClose(w)
		return
	}
	if needAuth && (!hasAuth || user != s.username || pass != s.password) {
		w.Header().Set("WWW-Authenticate", `Basic realm="samba"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch {
	case isPage:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, page)
	case isFile:
		w.Header().Set("Content-Length", fmt.Sprint(len(file)))
		_, _ = w.Write(file)
	case r.URL.Path == "/share/truncated.bin":
		w.Header().Set("Content-Length", "1024")
		_, _ = io.WriteString(w, "partial")
	case strings.HasPrefix(r.URL.Path, "/share/broken/"):
		w.WriteHeader(http.StatusInternalServerError)
	default:
		http.NotFound(w, r)
	}
}

func (s *sambaStub) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
	_ = s.listener.Close()
}

func (s *sambaStub) RequireAuth(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username, s.password = username, password
}

func (s *sambaStub) DropNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropNext = n
}

func (s *sambaStub) SetPage(path, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[path] = body
}

func (s *sambaStub) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *sambaStub) Hits(path string) int {
	count := 0
	for _, req := range s.Requests() {
		if req.Path == path {
			count++
		}
	}
	return count
}

func folderPage(folders []string, files map[string]string) string {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	b.WriteString(`<tr><td class="fb-n"><a href="../">Parent Directory</a></td></tr>` + "\n")
	for _, name := range folders {
		fmt.Fprintf(&b, `<tr><td class="fb-n"><a href="%s">%s</a></td><td class="fb-s">-</td></tr>`+"\n", name, strings.TrimSuffix(name, "/"))
	}
	for name, size := range files {
		fmt.Fprintf(&b, `<tr><td class="fb-n"><a href="%s">%s</a></td><td class="fb-s">%s</td></tr>`+"\n", name, name, size)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func hijackAndClose(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}
