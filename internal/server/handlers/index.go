package handlers

import (
	"net/http"

	"github.com/agentstation/cmdboard/internal/server/response"
)

// Index serves a page rendered once at build time.
type Index struct {
	page []byte
}

// NewIndex returns a handler that writes page verbatim on every request.
func NewIndex(page string) *Index {
	return &Index{page: []byte(page)}
}

// ServeHTTP handles GET /.
func (h *Index) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, h.page)
}

// Page returns a copy of the precomputed page.
func (h *Index) Page() []byte {
	return append([]byte(nil), h.page...)
}
