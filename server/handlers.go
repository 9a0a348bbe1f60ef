package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/vitalvas/dciauth/dcisig"
)

type errorResponse struct {
	Error string `json:"error"`
}

type identityResponse struct {
	AccessKey   string `json:"access_key"`
	ClientType  string `json:"client_type"`
	ClientID    string `json:"client_id"`
	Algorithm   string `json:"algorithm"`
	Region      string `json:"region"`
	Service     string `json:"service"`
	RequestType string `json:"request_type"`
	SignedAt    string `json:"signed_at"`
}

type echoResponse struct {
	AccessKey string          `json:"access_key"`
	RequestID string          `json:"request_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Data      string          `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, "ok\n")
}

func handleIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := dcisig.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	writeJSON(w, http.StatusOK, identityResponse{
		AccessKey:   id.AccessKey(),
		ClientType:  id.ClientType,
		ClientID:    id.ClientID,
		Algorithm:   id.Algorithm.String(),
		Region:      id.Scope.Region,
		Service:     id.Scope.Service,
		RequestType: id.Scope.RequestType,
		SignedAt:    id.SignedAt.Format(time.RFC3339),
	})
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	id, ok := dcisig.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	resp := echoResponse{
		AccessKey: id.AccessKey(),
		RequestID: RequestIDFromContext(r.Context()),
	}

	if json.Valid(body) {
		resp.Payload = body
	} else {
		resp.Data = string(body)
	}

	writeJSON(w, http.StatusOK, resp)
}
