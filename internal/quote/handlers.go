package quote

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-stayrate/internal/common"
	"github.com/noah-isme/backend-stayrate/internal/rateplan"
)

const maxBodyBytes = 1 << 20

// Handler exposes the quote API.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Routes mounts the endpoints on r.
func (h *Handler) Routes(r chi.Router, quoteLimiter func(http.Handler) http.Handler) {
	r.Group(func(q chi.Router) {
		if quoteLimiter != nil {
			q.Use(quoteLimiter)
		}
		q.Post("/quotes", h.Quote)
		q.Post("/bookings/payload", h.Payload)
	})
	r.Get("/rate-plans", h.RatePlans)
	r.Get("/rate-plans/{id}", h.RatePlan)
}

// Quote handles POST /api/v1/quotes.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	req, err := decodeRequest(w, r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.service.Quote(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// Payload handles POST /api/v1/bookings/payload.
func (h *Handler) Payload(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	req, err := decodeRequest(w, r)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sub, err := h.service.Payload(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sub)
}

// RatePlans handles GET /api/v1/rate-plans.
func (h *Handler) RatePlans(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 20, 100)
	plans, meta := h.service.ListPlans(page, perPage)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       plans,
		"pagination": meta,
	})
}

// RatePlan handles GET /api/v1/rate-plans/{id}.
func (h *Handler) RatePlan(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	id, err := rateplan.ParseID(chi.URLParam(r, "id"))
	if err != nil || id.IsZero() {
		common.JSONError(w, http.StatusBadRequest, "INVALID_ID", "invalid rate plan id", nil)
		return
	}
	plan, err := h.service.GetPlan(id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, plan)
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (Request, error) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return Request{}, common.NewAppError("INVALID_JSON", "invalid request body", http.StatusBadRequest, err)
	}
	return req, nil
}
