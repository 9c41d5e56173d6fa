package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/hammamikhairi/mysteryhost/internal/domain"
)

var errEmptyBody = errors.New("empty request body")

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errEmptyBody
	}
	return sonic.Unmarshal(body, out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondDomainError maps a domain sentinel to a status and code.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBusy):
		respondError(w, http.StatusConflict, "busy", err.Error())
	case errors.Is(err, domain.ErrEmptyText):
		respondError(w, http.StatusBadRequest, "empty_text", err.Error())
	case errors.Is(err, domain.ErrInvalidSpeed):
		respondError(w, http.StatusBadRequest, "invalid_speed", err.Error())
	case errors.Is(err, domain.ErrInvalidDuration):
		respondError(w, http.StatusBadRequest, "invalid_duration", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrSynthesis):
		respondError(w, http.StatusBadGateway, "synthesis_failed", err.Error())
	case errors.Is(err, domain.ErrDecode):
		respondError(w, http.StatusBadGateway, "decode_failed", err.Error())
	case errors.Is(err, domain.ErrPlayback):
		respondError(w, http.StatusInternalServerError, "playback_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func marshalSnapshot(snap any) ([]byte, error) {
	return sonic.Marshal(snap)
}
