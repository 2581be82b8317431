package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aussiebroadwan/bouncer/internal/bouncer/domain"
	"github.com/aussiebroadwan/bouncer/internal/bouncer/store"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/idx"
	"github.com/aussiebroadwan/bouncer/pkg/slogx"
)

// DecisionsHandler serves the access decision audit log.
type DecisionsHandler struct {
	Store store.Store
}

// HandleList lists recent decisions.
//
//	@Summary		List access decisions
//	@Description	Returns audited guard decisions, newest first. Requires ROLE_ADMIN under the shipped policy.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			subject	query		string	false	"Only decisions for this subject"
//	@Param			allowed	query		bool	false	"Only allowed (true) or denied (false) decisions"
//	@Param			since	query		string	false	"RFC 3339 lower bound on decision time"
//	@Param			limit	query		int		false	"Maximum results (default and cap 500)"
//	@Success		200		{object}	ListDecisionsResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid query parameter"
//	@Failure		401		{object}	httpx.ErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		500		{object}	httpx.ErrorResponse
//	@Router			/api/admin/decisions [get]
func (h *DecisionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	filter, err := parseDecisionFilter(r)
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, err.Error())
		return
	}

	recs, err := h.Store.Decisions().ListDecisions(ctx, filter)
	if err != nil {
		log.Error("failed to list decisions", "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternalServerError, "Failed to list decisions")
		return
	}

	response := ListDecisionsResponse{Decisions: make([]DecisionResponse, len(recs))}
	for i, rec := range recs {
		response.Decisions[i] = toDecisionResponse(rec)
	}
	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleGet returns one decision.
//
//	@Summary		Get an access decision
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Decision ID (ULID)"
//	@Success		200	{object}	DecisionResponse
//	@Failure		400	{object}	httpx.ErrorResponse	"Malformed ID"
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Router			/api/admin/decisions/{id} [get]
func (h *DecisionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, httpx.CodeInvalidRequest, "Malformed decision ID")
		return
	}

	rec, err := h.Store.Decisions().GetDecision(ctx, id.String())
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Decision not found")
		return
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load decision", "id", id, "error", err)
		httpx.WriteError(w, r, http.StatusInternalServerError, httpx.CodeInternalServerError, "Failed to load decision")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toDecisionResponse(rec))
}

func parseDecisionFilter(r *http.Request) (domain.DecisionFilter, error) {
	q := r.URL.Query()
	f := domain.DecisionFilter{Subject: q.Get("subject")}

	if v := q.Get("allowed"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("allowed must be true or false")
		}
		f.Allowed = &allowed
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("since must be an RFC 3339 timestamp")
		}
		f.Since = since
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return f, errors.New("limit must be a positive integer")
		}
		f.Limit = limit
	}

	return f, nil
}

func toDecisionResponse(rec domain.DecisionRecord) DecisionResponse {
	return DecisionResponse{
		ID:        rec.ID,
		RequestID: rec.RequestID,
		Subject:   rec.Subject,
		Principal: rec.Principal,
		Method:    rec.Method,
		Resource:  rec.Resource,
		Allowed:   rec.Allowed,
		Reason:    rec.Reason,
		Rule:      rec.Rule,
		Status:    rec.Status,
		CreatedAt: rec.CreatedAt,
	}
}
