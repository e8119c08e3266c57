package handlers

import (
	"net/http"
)

// Static serves the directory dir under the URL prefix. prefix must not end
// in a slash.
func Static(prefix, dir string) http.Handler {
	return http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
}
