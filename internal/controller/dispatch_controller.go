package controller

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ingressos/disparador-backend/internal/service"
)

// DispatchController exposes the scheduler entrypoint. An external periodic
// trigger posts here on a fixed interval; the handler takes no
// campaign-specific input.
type DispatchController struct {
	Dispatcher *service.Dispatcher
	Log        zerolog.Logger
}

func (c *DispatchController) Run(w http.ResponseWriter, r *http.Request) {
	summary, err := c.Dispatcher.RunOnce(r.Context())
	if err != nil {
		c.Log.Error().Err(err).Msg("dispatch invocation failed")
	}
	status := http.StatusOK
	if !summary.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, summary)
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
