package httpapi

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// ndjsonWriter writes one JSON value per line and flushes after each.
// The header is sent lazily so errors before the first fragment can still
// be reported with a proper status code.
type ndjsonWriter struct {
	w       http.ResponseWriter
	enc     *json.Encoder
	flush   func()
	started bool
}

func newNDJSONWriter(w http.ResponseWriter) *ndjsonWriter {
	nw := &ndjsonWriter{w: w, enc: json.NewEncoder(w), flush: func() {}}
	if f, ok := w.(http.Flusher); ok {
		nw.flush = f.Flush
	}
	return nw
}

func (nw *ndjsonWriter) write(v any) error {
	if !nw.started {
		nw.w.Header().Set("Content-Type", "application/x-ndjson")
		nw.w.WriteHeader(http.StatusOK)
		nw.started = true
	}
	if err := nw.enc.Encode(v); err != nil {
		return err
	}
	nw.flush()
	return nil
}
