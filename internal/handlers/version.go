package handlers

import (
	"context"
	"net/http"
	"time"

	"ffmpeg-microservice/internal/logging"
	"ffmpeg-microservice/internal/startup"
)

// VersionResponse is the build information plus the installed ffmpeg version.
type VersionResponse struct {
	startup.BuildInfo
	FFmpeg string `json:"ffmpeg,omitempty"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	resp := VersionResponse{BuildInfo: startup.GetBuildInfo()}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if v, err := h.tool.Version(ctx); err != nil {
		logging.Debug("could not determine ffmpeg version: %v", err)
	} else {
		resp.FFmpeg = v
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, http.StatusOK, resp)
}
