/*
handlers.go - HTTP handlers for the record-keeping API

PURPOSE:
  Translates HTTP requests into ledger operations and domain errors into
  status codes. Handlers stay thin: decode, validate, call the engine,
  encode. All invariants live in the ledger package.

URL SHAPE:
  /api/{domain}/{family}          collection (POST create, GET list)
  /api/{domain}/{family}/{id}     one record (GET, PUT fields)
  .../{id}/quantity               PATCH signed delta
  .../{id}/deactivate             POST permanent retirement
  .../{id}/history                GET audit trail
  .../{id}/verify                 GET replay check
  /api/families                   GET registered families

ERROR MAPPING:
  permission denied            403
  not found                    404
  invalid argument             400
  duplicate key / inactive /
  insufficient / concurrent    409
  storage failure              500

SEE ALSO:
  - dto.go:    Request and response shapes
  - server.go: Route wiring
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ehslabs/labledger/ledger"
)

// =============================================================================
// HANDLER
// =============================================================================

type Handler struct {
	engine   *ledger.Service
	validate *validator.Validate
	log      zerolog.Logger
}

func NewHandler(engine *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		engine:   engine,
		validate: validator.New(),
		log:      log.With().Str("component", "api").Logger(),
	}
}

// resolveFamily maps the {domain}/{family} URL segments to a registered
// family. A family that exists but belongs to a different domain is
// treated as not found, so /api/reagents/chemicals is a 404.
func (h *Handler) resolveFamily(r *http.Request) (ledger.Family, bool) {
	domain := chi.URLParam(r, "domain")
	id := chi.URLParam(r, "family")
	family := ledger.LookupFamily(id)
	if family == nil || family.FamilyDomain() != domain {
		return nil, false
	}
	return family, true
}

// =============================================================================
// COLLECTION HANDLERS
// =============================================================================

func (h *Handler) createEntity(w http.ResponseWriter, r *http.Request) {
	family, ok := h.resolveFamily(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown family", nil)
		return
	}

	var req CreateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	entity, err := h.engine.Create(r.Context(), ledger.CreateRequest{
		Family:          family,
		Key:             req.Key,
		Name:            req.Name,
		Category:        req.Category,
		Attributes:      req.Attributes,
		InitialQuantity: ledger.NewQuantity(req.InitialQuantity, ledger.Unit(req.Unit)),
	}, ActorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntityDTO(entity))
}

func (h *Handler) listEntities(w http.ResponseWriter, r *http.Request) {
	family, ok := h.resolveFamily(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown family", nil)
		return
	}

	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	entities, err := h.engine.List(r.Context(), family, includeInactive, ActorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]EntityDTO, len(entities))
	for i, e := range entities {
		out[i] = toEntityDTO(e)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// SINGLE-RECORD HANDLERS
// =============================================================================

func (h *Handler) getEntity(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))
	entity, err := h.engine.Get(r.Context(), id, ActorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntityDTO(entity))
}

func (h *Handler) updateEntity(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	var req UpdateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entity, changes, err := h.engine.UpdateFields(r.Context(), id, ledger.FieldUpdate{
		Name:       req.Name,
		Category:   req.Category,
		Attributes: req.Attributes,
	}, ActorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateResultDTO{
		Entity:  toEntityDTO(entity),
		Changed: len(changes),
		NoOp:    len(changes) == 0,
	})
}

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	var req ChangeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed", err)
		return
	}

	// Unit left empty: the engine adopts the entity's unit.
	delta := ledger.NewQuantity(req.Delta, "")
	change, err := h.engine.ChangeQuantity(r.Context(), id, delta, req.Reason, req.Notes, ActorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	oldQty, _ := change.Old.Value.Float64()
	newQty, _ := change.New.Value.Float64()
	writeJSON(w, http.StatusOK, QuantityChangeDTO{
		OldQuantity: oldQty,
		NewQuantity: newQty,
		Unit:        string(change.New.Unit),
	})
}

func (h *Handler) deactivateEntity(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	var req DeactivateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err)
			return
		}
	}

	if err := h.engine.Deactivate(r.Context(), id, req.Reason, ActorFrom(r.Context())); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.engine.GetHistory(r.Context(), id, limit, ActorFrom(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	out := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = toHistoryDTO(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) verifyHistory(w http.ResponseWriter, r *http.Request) {
	id := ledger.EntityID(chi.URLParam(r, "id"))

	err := h.engine.VerifyHistory(r.Context(), id, ActorFrom(r.Context()))
	if err != nil {
		if errors.Is(err, ledger.ErrReplayDivergence) {
			writeJSON(w, http.StatusOK, map[string]any{
				"consistent": false,
				"detail":     err.Error(),
			})
			return
		}
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"consistent": true})
}

func (h *Handler) listFamilies(w http.ResponseWriter, r *http.Request) {
	families := ledger.ListFamilies()
	out := make([]FamilyDTO, len(families))
	for i, f := range families {
		out[i] = FamilyDTO{ID: f.FamilyID(), Domain: f.FamilyDomain()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("internal error")
		// Do not leak storage internals to the client.
		writeError(w, status, "internal error", nil)
		return
	}
	writeError(w, status, err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrDuplicateKey),
		errors.Is(err, ledger.ErrEntityInactive),
		errors.Is(err, ledger.ErrInsufficientQuantity),
		errors.Is(err, ledger.ErrConcurrentModification):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
