package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/cloutmarket/settlement/pkg/rewards"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errMalformedBody marks a request body that failed to parse at all, before
// any field-level validation.
var errMalformedBody = errors.New("malformed request body")

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to write response", "error", err)
	}
}

// writeError maps the settlement error taxonomy onto HTTP status codes.
// Input and not-found errors are the caller's fault; authority and state
// conflicts are 409; missing configuration is 503 so orchestrators retry
// elsewhere; transient RPC failures are 502.
func writeError(log *slog.Logger, w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case errors.Is(err, errMalformedBody):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, rewards.ErrInvalidAddress):
		status, code = http.StatusBadRequest, "invalid_address"
	case errors.Is(err, rewards.ErrInvalidAmount):
		status, code = http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, rewards.ErrAccountNotFound):
		status, code = http.StatusBadRequest, "account_not_found"
	case errors.Is(err, rewards.ErrInvalidAccountData):
		status, code = http.StatusBadRequest, "invalid_account_data"
	case errors.Is(err, rewards.ErrAuthorityMismatch):
		status, code = http.StatusConflict, "authority_mismatch"
	case errors.Is(err, rewards.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, rewards.ErrMissingAuthority):
		status, code = http.StatusServiceUnavailable, "authority_unavailable"
	case errors.Is(err, rewards.ErrConfiguration):
		status, code = http.StatusServiceUnavailable, "configuration_error"
	case errors.Is(err, rewards.ErrNetwork):
		status, code = http.StatusBadGateway, "upstream_unavailable"
	case errors.Is(err, rewards.ErrArithmeticOverflow):
		status, code = http.StatusUnprocessableEntity, "arithmetic_overflow"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
	}
	if status >= 500 {
		log.Error("request failed", "error", err, "status", status)
	} else {
		log.Debug("request rejected", "error", err, "status", status)
	}
	writeJSON(log, w, status, errorResponse{Error: code, Message: err.Error()})
}

// GetIPFromRequest extracts the client IP, preferring proxy headers.
func GetIPFromRequest(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
