package main

import (
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"github.com/fpang/satellite-super-resolution/internal/workflow"
)

const eventsPath = "/api/events"

// maxImageBody bounds POST /api/image; base64 inflates a 48 MiB image to 64 MiB.
const maxImageBody = 64 << 20

// server exposes one workflow controller over HTTP.
type server struct {
	ctrl         *workflow.Controller
	maxDimension int
	pick         func() (string, error)

	// closing is closed on shutdown so event streams return.
	closing   chan struct{}
	closeOnce sync.Once
}

func newServer(ctrl *workflow.Controller, maxDimension int, pick func() (string, error)) *server {
	return &server{
		ctrl:         ctrl,
		maxDimension: maxDimension,
		pick:         pick,
		closing:      make(chan struct{}),
	}
}

func (s *server) closeStreams() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// routes registers the API endpoints.
func (s *server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/image", s.handleImage)
	mux.HandleFunc("POST /api/enhance", s.handleEnhance)
	mux.HandleFunc("POST /api/pick", s.handlePick)
	mux.HandleFunc("GET "+eventsPath, s.handleEvents)
}

// handler builds the full middleware chain around the API and the embedded
// frontend rooted at frontend_dist.
func (s *server) handler(frontend fs.FS) (http.Handler, error) {
	mux := http.NewServeMux()
	s.routes(mux)

	frontendSub, err := fs.Sub(frontend, "frontend_dist")
	if err != nil {
		return nil, err
	}
	fileServer := http.FileServer(http.FS(frontendSub))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// SPA fallback: unknown paths serve index.html
		path := r.URL.Path
		if path != "/" {
			f, err := frontendSub.Open(strings.TrimPrefix(path, "/"))
			if err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})

	return withLogging(withCORS(withSecurityHeaders(withGzip(mux)))), nil
}
