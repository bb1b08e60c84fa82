package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
)

var (
	errUnauthenticated = errors.New("authorization required")
	errInvalidToken    = errors.New("invalid or expired token")
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func WriteError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	code := CodeOf(err)
	WriteJSON(w, status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// DecodeJSON decodes the request body into v; malformed bodies are a BadRequest.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return BadRequest("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return BadRequest("request body is required")
		}
		return BadRequest("invalid request body: %v", err)
	}
	return nil
}

// QueryInt reads an integer query parameter; missing or malformed values yield def.
func QueryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
