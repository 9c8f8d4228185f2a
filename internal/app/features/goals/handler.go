// internal/app/features/goals/handler.go
package goals

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	"github.com/dalemusser/fiiportal/internal/app/store/audit"
	goalstore "github.com/dalemusser/fiiportal/internal/app/store/goals"
	"github.com/dalemusser/fiiportal/internal/app/system/auditlog"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const resource = "goal"

// Handler serves community goals.
type Handler struct {
	Goals  *goalstore.Store
	Audit  *auditlog.Logger
	ErrLog *errorsfeature.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Goals:  goalstore.New(db),
		Audit:  audit,
		ErrLog: errLog,
		Log:    logger,
	}
}

type goalView struct {
	models.Goal
	Progress float64 `json:"progress"`
}

func views(gs []models.Goal) []goalView {
	out := make([]goalView, len(gs))
	for i, g := range gs {
		out[i] = goalView{Goal: g, Progress: g.Progress()}
	}
	return out
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	switch {
	case errors.Is(err, goalstore.ErrInvalid):
		respond.BadRequest(w, r, err.Error())
	case errors.Is(err, goalstore.ErrNotFound):
		respond.NotFound(w, r, "goal not found")
	default:
		h.ErrLog.LogServerError(w, r, msg, err)
	}
}

// ServeActive recomputes and returns the active goals.
//
// Route: GET /api/goals
func (h *Handler) ServeActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	gs, err := h.Goals.RecalculateActive(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "recalculate goals failed", err)
		return
	}
	respond.OK(w, map[string]any{"items": views(gs)})
}

// ServeAdminList returns every goal, active or not.
//
// Route: GET /api/admin/goals
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	gs, err := h.Goals.List(ctx, false)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list goals failed", err)
		return
	}
	respond.OK(w, map[string]any{"items": views(gs), "metrics": models.GoalMetrics})
}

type goalInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Metric      *string `json:"metric"`
	Target      *int64  `json:"target"`
	Active      *bool   `json:"active"`
}

// HandleCreate adds a goal. Goals are active unless active=false is sent.
//
// Route: POST /api/admin/goals
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in goalInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	g := models.Goal{Active: true}
	if in.Title != nil {
		g.Title = *in.Title
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.Metric != nil {
		g.Metric = *in.Metric
	}
	if in.Target != nil {
		g.Target = *in.Target
	}
	if in.Active != nil {
		g.Active = *in.Active
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Goals.Create(ctx, g)
	if err != nil {
		h.storeError(w, r, "create goal failed", err)
		return
	}
	h.Audit.Admin(ctx, r, shared.Actor(r), audit.EventCreated, resource, g.ID.Hex(), g.Title)
	respond.Created(w, goalView{Goal: g, Progress: g.Progress()})
}

// ServeAdminOne returns one goal.
//
// Route: GET /api/admin/goals/{id}
func (h *Handler) ServeAdminOne(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Goals.GetByID(ctx, id)
	if err != nil {
		h.storeError(w, r, "get goal failed", err)
		return
	}
	respond.OK(w, goalView{Goal: g, Progress: g.Progress()})
}

// HandleUpdate changes the fields present in the body.
//
// Route: PUT /api/admin/goals/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	var in goalInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, err := h.Goals.Update(ctx, id, goalstore.Update{
		Title:       in.Title,
		Description: in.Description,
		Metric:      in.Metric,
		Target:      in.Target,
		Active:      in.Active,
	})
	if err != nil {
		h.storeError(w, r, "update goal failed", err)
		return
	}
	h.Audit.Admin(ctx, r, shared.Actor(r), audit.EventUpdated, resource, g.ID.Hex(), g.Title)
	respond.OK(w, goalView{Goal: g, Progress: g.Progress()})
}

// HandleDelete removes a goal.
//
// Route: DELETE /api/admin/goals/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectID(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Goals.Delete(ctx, id); err != nil {
		h.storeError(w, r, "delete goal failed", err)
		return
	}
	h.Audit.Admin(ctx, r, shared.Actor(r), audit.EventDeleted, resource, id.Hex(), "")
	respond.NoContent(w)
}
