package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fetchweave/fetchsvc/internal/apierrors"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	writeJSON(w, status, body)
}

// statusForKind maps an apierrors.Kind to the caller-visible HTTP status
// from spec.md §7's error table.
func statusForKind(kind apierrors.Kind) int {
	switch kind {
	case apierrors.KindInvalidUrl:
		return http.StatusBadRequest
	case apierrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apierrors.KindRateLimited, apierrors.KindUpstreamRateLimited:
		return http.StatusTooManyRequests
	case apierrors.KindNoViableTier:
		return http.StatusUnprocessableEntity
	case apierrors.KindFetchTimeout:
		return http.StatusGatewayTimeout
	case apierrors.KindRenderFailed:
		return http.StatusBadGateway
	case apierrors.KindBotDetected:
		return 451 // http.StatusUnavailableForLegalReasons (not exported pre-1.22 stdlib constant set we rely on)
	default:
		return http.StatusInternalServerError
	}
}

// writeFetchError translates a Fetch/Plan failure into the HTTP response
// spec.md §7 describes: a typed *apierrors.Error maps through
// statusForKind; anything else is an opaque 500.
func writeFetchError(w http.ResponseWriter, err error) {
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		writeError(w, statusForKind(apiErr.Kind), string(apiErr.Kind), apiErr.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "Internal", err.Error())
}
