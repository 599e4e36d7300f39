package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jonwraymond/gridgate/auth"
	"github.com/jonwraymond/gridgate/observe"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type handlers struct {
	households  HouseholdStore
	powerplants PowerplantStore
	authz       auth.RoleAuthorizer
	ownership   auth.OwnershipPolicy
	validate    *validator.Validate
	logger      observe.Logger
	metrics     observe.Metrics
	now         func() time.Time
}

// require applies the role layer for op and records the decision.
func (h *handlers) require(op auth.Operation) func(http.Handler) http.Handler {
	roleLayer := auth.Require(h.authz, op, h.denied)
	return func(next http.Handler) http.Handler {
		return roleLayer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.metrics.RecordAuthorization(r.Context(), op.Name, auth.StageRoleChecked.String(), true)
			next.ServeHTTP(w, r)
		}))
	}
}

// authorizeOwner applies the ownership layer to res. It writes 403 and
// returns false on denial.
func (h *handlers) authorizeOwner(w http.ResponseWriter, r *http.Request, op auth.Operation, res auth.OwnedResource) bool {
	ctx := r.Context()
	id, _ := auth.IdentityFromContext(ctx)

	chain := auth.NewChain(auth.OwnerGuard{Policy: h.ownership, Operation: op.Name, Resource: res})
	if err := chain.Check(ctx, id); err != nil {
		h.denied(ctx, err)
		auth.Forbidden(w)
		return false
	}
	h.metrics.RecordAuthorization(ctx, op.Name, auth.StageOwnershipChecked.String(), true)
	return true
}

func (h *handlers) authnFailed(ctx context.Context, err error) {
	reason := auth.FailureCode(err)
	h.logger.Warn(ctx, "authentication failed", observe.F("reason", reason))
	h.metrics.RecordAuthentication(ctx, reason)
}

func (h *handlers) denied(ctx context.Context, err error) {
	operation, stage := "", auth.StageDenied.String()
	var authzErr *auth.AuthzError
	if errors.As(err, &authzErr) {
		operation, stage = authzErr.Operation, authzErr.Stage.String()
	}
	h.logger.Warn(ctx, "authorization denied",
		observe.F("operation", operation),
		observe.F("stage", stage),
		observe.F("reason", auth.FailureCode(err)),
		observe.F("subject", auth.SubjectFromContext(ctx)),
	)
	h.metrics.RecordAuthorization(ctx, operation, stage, false)
}

// authenticated records successful authentications. It runs after the gate.
func (h *handlers) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.metrics.RecordAuthentication(r.Context(), "")
		next.ServeHTTP(w, r)
	})
}

func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(r.Context(), "handler failed", observe.F("operation", op), observe.F("error", err.Error()))
	w.WriteHeader(http.StatusInternalServerError)
}

func (h *handlers) gridBlackouts(w http.ResponseWriter, r *http.Request) {
	blackouts, err := h.households.ListBlackouts(r.Context())
	if err != nil {
		h.internalError(w, r, OpGridBlackouts.Name, err)
		return
	}
	writeJSON(w, http.StatusOK, blackouts)
}

func (h *handlers) householdsByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if !h.authorizeOwner(w, r, OpHouseholdsByUser, auth.OwnerRef(userID)) {
		return
	}
	households, err := h.households.ListByOwner(r.Context(), userID)
	if err != nil {
		h.internalError(w, r, OpHouseholdsByUser.Name, err)
		return
	}
	writeJSON(w, http.StatusOK, households)
}

func (h *handlers) householdsMine(w http.ResponseWriter, r *http.Request) {
	households, err := h.households.ListByOwner(r.Context(), auth.SubjectFromContext(r.Context()))
	if err != nil {
		h.internalError(w, r, OpHouseholdsMine.Name, err)
		return
	}
	writeJSON(w, http.StatusOK, households)
}

// createHouseholdRequest is the accepted household body. Owner, id and sell
// limit are never taken from the client.
type createHouseholdRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Area     string `json:"area" validate:"omitempty,max=128"`
	Location string `json:"location" validate:"omitempty,max=256"`
}

func (h *handlers) householdCreate(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	created, err := h.households.Create(r.Context(), Household{
		OwnerID:  auth.SubjectFromContext(r.Context()),
		Name:     req.Name,
		Area:     req.Area,
		Location: req.Location,
	})
	if err != nil {
		h.internalError(w, r, OpHouseholdCreate.Name, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// decodeBody decodes and validates the JSON request body into v. It writes
// 400 with the list of problems and returns false when v is unusable.
func (h *handlers) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, []string{"invalid request body"})
		return false
	}
	if msgs := h.validationMessages(v); len(msgs) > 0 {
		writeJSON(w, http.StatusBadRequest, msgs)
		return false
	}
	return true
}

func (h *handlers) validationMessages(v any) []string {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return msgs
}

// loadHousehold resolves the {id} household. It writes 400, 404 or 500 and
// returns nil when the household cannot be served.
func (h *handlers) loadHousehold(w http.ResponseWriter, r *http.Request, op auth.Operation) *Household {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, []string{"invalid household id"})
		return nil
	}
	household, err := h.households.Get(r.Context(), id)
	switch {
	case errors.Is(err, ErrHouseholdNotFound):
		w.WriteHeader(http.StatusNotFound)
		return nil
	case err != nil:
		h.internalError(w, r, op.Name, err)
		return nil
	}
	return household
}

func (h *handlers) householdGet(w http.ResponseWriter, r *http.Request) {
	household := h.loadHousehold(w, r, OpHouseholdGet)
	if household == nil {
		return
	}
	if !h.authorizeOwner(w, r, OpHouseholdGet, household) {
		return
	}
	writeJSON(w, http.StatusOK, household)
}

// updateHouseholdRequest is a partial household update. Fields left out are
// kept; owner, id and sell limit are not accepted.
type updateHouseholdRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=128"`
	Area     *string `json:"area" validate:"omitempty,max=128"`
	Location *string `json:"location" validate:"omitempty,max=256"`
	Blackout *bool   `json:"blackout"`
}

// householdUpdate reads the body only after ownership passes, so a
// non-owner learns nothing from validation errors.
func (h *handlers) householdUpdate(w http.ResponseWriter, r *http.Request) {
	household := h.loadHousehold(w, r, OpHouseholdUpdate)
	if household == nil {
		return
	}
	if !h.authorizeOwner(w, r, OpHouseholdUpdate, household) {
		return
	}

	var req updateHouseholdRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	changes := HouseholdChanges{Name: req.Name, Area: req.Area, Location: req.Location, Blackout: req.Blackout}
	if changes.IsEmpty() {
		writeJSON(w, http.StatusBadRequest, []string{"empty request body, no changes found"})
		return
	}

	updated, err := h.households.Update(r.Context(), household.ID, changes)
	switch {
	case errors.Is(err, ErrHouseholdNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		h.internalError(w, r, OpHouseholdUpdate.Name, err)
	default:
		writeJSON(w, http.StatusOK, updated)
	}
}

func (h *handlers) householdDelete(w http.ResponseWriter, r *http.Request) {
	household := h.loadHousehold(w, r, OpHouseholdDelete)
	if household == nil {
		return
	}
	if !h.authorizeOwner(w, r, OpHouseholdDelete, household) {
		return
	}
	err := h.households.Delete(r.Context(), household.ID)
	switch {
	case errors.Is(err, ErrHouseholdNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		h.internalError(w, r, OpHouseholdDelete.Name, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// sellLimitRequest limits one household from selling between start and end.
type sellLimitRequest struct {
	HouseholdID string    `json:"householdId" validate:"required"`
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required,gtfield=Start"`
}

func (h *handlers) marketLimitSet(w http.ResponseWriter, r *http.Request) {
	var req sellLimitRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	id, err := ParseID(req.HouseholdID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, []string{"invalid household id"})
		return
	}
	err = h.households.SetSellLimit(r.Context(), id, SellLimit{Start: req.Start.UTC(), End: req.End.UTC()})
	switch {
	case errors.Is(err, ErrHouseholdNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		h.internalError(w, r, OpMarketLimitSet.Name, err)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (h *handlers) marketLimitDelete(w http.ResponseWriter, r *http.Request) {
	id, err := ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, []string{"invalid household id"})
		return
	}
	err = h.households.ClearSellLimit(r.Context(), id)
	switch {
	case errors.Is(err, ErrHouseholdNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		h.internalError(w, r, OpMarketLimitDelete.Name, err)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func powerplantName(r *http.Request) string {
	if name := r.URL.Query().Get("name"); name != "" {
		return name
	}
	return DefaultPowerplant
}

func (h *handlers) powerplantStatus(w http.ResponseWriter, r *http.Request) {
	plant, err := h.powerplants.Powerplant(r.Context(), powerplantName(r))
	h.writePowerplant(w, r, OpPowerplantStatus, plant, err)
}

// powerplantStatusRequest starts or stops a powerplant.
type powerplantStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *handlers) powerplantStatusSet(w http.ResponseWriter, r *http.Request) {
	var req powerplantStatusRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	plant, err := h.powerplants.SetPowerplantActive(r.Context(), powerplantName(r), *req.Active)
	h.writePowerplant(w, r, OpPowerplantStatusSet, plant, err)
}

func (h *handlers) writePowerplant(w http.ResponseWriter, r *http.Request, op auth.Operation, plant *Powerplant, err error) {
	switch {
	case errors.Is(err, ErrPowerplantNotFound):
		w.WriteHeader(http.StatusNotFound)
	case err != nil:
		h.internalError(w, r, op.Name, err)
	default:
		writeJSON(w, http.StatusOK, plant)
	}
}

// whoAmIResponse is the caller's view of its own identity.
type whoAmIResponse struct {
	SubjectID string    `json:"subjectId"`
	Role      auth.Role `json:"role"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// whoAmI rejects an identity that expired while the request was in flight.
func (h *handlers) whoAmI(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if id.ExpiredAt(h.now()) {
		h.authnFailed(r.Context(), auth.ErrTokenExpired)
		auth.Unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, whoAmIResponse{
		SubjectID: id.SubjectID,
		Role:      id.Role,
		Email:     id.Email,
		Name:      id.DisplayName,
		ExpiresAt: id.ExpiresAt,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
