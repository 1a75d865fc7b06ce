// Package respond writes the JSON envelope every API endpoint uses:
//
//	{ "success": true,  "message": "...", "data": {...} }
//	{ "success": false, "message": "...", "error": {"kind": "...", "message": "...", "fields": {...}} }
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/chitfund/internal/app/system/apierr"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Envelope is the response body shape.
type Envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    any           `json:"data,omitempty"`
	Error   *apierr.Error `json:"error,omitempty"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, Envelope{Success: true, Message: message, Data: data})
}

// Error converts err to the taxonomy, logs internal failures and writes the
// failure envelope. Internal causes never reach the client.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	ae := apierr.From(err)
	if ae.Kind == apierr.KindInternal && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(ae.Cause))
	}
	JSON(w, ae.Status(), Envelope{Success: false, Message: ae.Message, Error: ae})
}

// ErrorWithData is Error that also carries a data payload (for example the
// per-slot outcome of a batch that failed as a whole).
func ErrorWithData(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error, data any) {
	ae := apierr.From(err)
	if ae.Kind == apierr.KindInternal && log != nil {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(ae.Cause))
	}
	JSON(w, ae.Status(), Envelope{Success: false, Message: ae.Message, Data: data, Error: ae})
}

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// Decode reads a JSON body of at most MaxBodyBytes into dst, rejecting
// unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apierr.Validation("Request body is too large.", nil)
		}
		return apierr.Validation("Request body is not valid JSON: "+err.Error(), nil)
	}
	return nil
}
