package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Content types used by the agent.
const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Response is what a route handler produces on success.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// routeHandler is the signature every route implements.
type routeHandler func(r *http.Request) (Response, error)

// textResponse builds a plain-text response.
func textResponse(status int, body string) Response {
	return Response{Status: status, ContentType: contentTypeText, Body: []byte(body)}
}

// jsonResponse builds a JSON response from v.
func jsonResponse(status int, v any) (Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Response{}, fmt.Errorf("encoding response: %w", err)
	}
	return Response{Status: status, ContentType: contentTypeJSON, Body: body}, nil
}

// adapt is the translation layer between route handlers and net/http.
// A returned error becomes a 500 carrying the error text.
func (s *Server) adapt(h routeHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h(r)
		if err != nil {
			s.logger.Error("handler failed",
				"path", r.URL.Path,
				"error", err,
				"request_id", requestID(r.Context()),
			)
			writeInternalError(w, err.Error())
			return
		}
		writeResponse(w, resp)
	}
}

// writeResponse writes resp to w.
func writeResponse(w http.ResponseWriter, resp Response) {
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		w.Write(resp.Body)
	}
}

// writeInternalError writes a 500 response whose body is message.
func writeInternalError(w http.ResponseWriter, message string) {
	writeResponse(w, textResponse(http.StatusInternalServerError, message))
}
