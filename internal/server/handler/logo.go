package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// LogoResolver returns the public URL of a cached team crest.
type LogoResolver interface {
	URL(ctx context.Context, teamID string) (string, error)
}

// LogoHandler redirects crest requests to the blob store.
type LogoHandler struct {
	logos  LogoResolver
	logger *slog.Logger
}

// NewLogoHandler creates a LogoHandler.
func NewLogoHandler(logos LogoResolver, logger *slog.Logger) *LogoHandler {
	return &LogoHandler{logos: logos, logger: logger}
}

// Redirect sends a 302 to the cached crest, or 404 when it was never fetched.
// GET /api/logos/{teamID}
func (h *LogoHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	teamID := pathParam(r, "teamID")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, "missing team id")
		return
	}
	url, err := h.logos.URL(r.Context(), teamID)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to resolve logo")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.Redirect(w, r, url, http.StatusFound)
}
