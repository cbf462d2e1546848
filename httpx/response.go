package httpx

import (
	"bytes"
	"net/http"
)

// Recorder captures a handler's response so it can be replayed onto the
// real ResponseWriter afterwards. The token endpoints are invoked with
// synthesized requests; recording lets the caller forward whatever they
// produced verbatim.
type Recorder struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (rec *Recorder) Header() http.Header {
	if rec.header == nil {
		rec.header = http.Header{}
	}
	return rec.header
}

func (rec *Recorder) Write(body []byte) (int, error) {
	return rec.body.Write(body)
}

func (rec *Recorder) WriteHeader(statusCode int) {
	rec.status = statusCode
}

// Replay copies the recorded headers, status and body onto w.
func (rec *Recorder) Replay(w http.ResponseWriter) error {
	header := w.Header()
	for key, value := range rec.header {
		header[key] = value
	}
	if rec.status != 0 {
		w.WriteHeader(rec.status)
	}
	if rec.body.Len() > 0 {
		_, err := w.Write(rec.body.Bytes())
		return err
	}
	return nil
}
