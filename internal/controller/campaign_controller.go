package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/ingressos/disparador-backend/internal/errors"
	"github.com/ingressos/disparador-backend/internal/service"
)

type CampaignController struct {
	Service *service.CampaignService
	Log     zerolog.Logger
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Unrecognized
// errors are treated as validation failures: every store failure is wrapped
// as DataAccessError by the service layer.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var notFound *appErrors.ErrCampaignNotFound
	var concurrent *appErrors.ErrConcurrentCampaign
	var editLocked *appErrors.ErrEditLocked
	var transition *appErrors.ErrInvalidTransition
	var dataAccess *appErrors.DataAccessError

	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &concurrent), errors.As(err, &editLocked), errors.As(err, &transition):
		status = http.StatusConflict
	case errors.As(err, &dataAccess):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string   `json:"name"`
		Message     string   `json:"message"`
		Tone        string   `json:"tone"`
		ImageBase64 string   `json:"image_base64"`
		CustomerIDs []string `json:"customer_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.Service.Create(service.CreateInput{
		Name:        body.Name,
		Message:     body.Message,
		Tone:        body.Tone,
		ImageBase64: body.ImageBase64,
		CustomerIDs: body.CustomerIDs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	details, err := c.Service.List(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": details})
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	details, err := c.Service.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        *string `json:"name"`
		Message     *string `json:"message"`
		ImageBase64 *string `json:"image_base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	campaign, err := c.Service.Update(chi.URLParam(r, "id"), service.UpdateInput{
		Name:        body.Name,
		Message:     body.Message,
		ImageBase64: body.ImageBase64,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) StartCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.Service.Start)
}

func (c *CampaignController) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.Service.Pause)
}

func (c *CampaignController) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.Service.Resume)
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	c.lifecycle(w, r, c.Service.Cancel)
}

func (c *CampaignController) lifecycle(w http.ResponseWriter, r *http.Request, op func(string) error) {
	id := chi.URLParam(r, "id")
	if err := op(id); err != nil {
		writeError(w, err)
		return
	}
	details, err := c.Service.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (c *CampaignController) EligibleRecipients(w http.ResponseWriter, r *http.Request) {
	customers, err := c.Service.EligibleRecipients()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": customers})
}
