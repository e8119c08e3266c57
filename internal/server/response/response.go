// Package response provides HTML response helpers for the cmdboard server.
// Every page the server produces, including failures, is a normal HTML
// document.
package response

import (
	"html"
	"net/http"
	"strconv"
)

// ContentTypeHTML is the content type of every page the server writes.
const ContentTypeHTML = "text/html; charset=utf-8"

// HTML writes body as an HTML document with the given status code.
func HTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", ContentTypeHTML)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	// Write errors are ignored as headers are already sent (best effort)
	_, _ = w.Write(body)
}

// OK writes body with a 200 status.
func OK(w http.ResponseWriter, body []byte) {
	HTML(w, http.StatusOK, body)
}

// TooManyRequests writes a 429 page.
func TooManyRequests(w http.ResponseWriter, message string) {
	HTML(w, http.StatusTooManyRequests, Page("Too Many Requests", message))
}

// InternalError writes a 500 page. Details are never exposed to the client.
func InternalError(w http.ResponseWriter) {
	HTML(w, http.StatusInternalServerError, Page("Internal Server Error", "An unexpected error occurred."))
}

// Page builds a minimal HTML document with a heading and one paragraph.
func Page(title, message string) []byte {
	t := html.EscapeString(title)
	return []byte("<!DOCTYPE html>\n<html>\n<head>\n<title>" + t + "</title>\n</head>\n<body>\n<h2>" + t +
		"</h2>\n<p>" + html.EscapeString(message) + "</p>\n</body>\n</html>\n")
}
