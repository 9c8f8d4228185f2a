// internal/app/features/subscriptions/handler.go
package subscriptions

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	errorsfeature "github.com/dalemusser/fiiportal/internal/app/features/errors"
	"github.com/dalemusser/fiiportal/internal/app/features/shared"
	subscriberstore "github.com/dalemusser/fiiportal/internal/app/store/subscribers"
	"github.com/dalemusser/fiiportal/internal/app/system/auth"
	"github.com/dalemusser/fiiportal/internal/app/system/paging"
	"github.com/dalemusser/fiiportal/internal/app/system/respond"
	"github.com/dalemusser/fiiportal/internal/app/system/timeouts"
	"github.com/dalemusser/fiiportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves member subscriptions and the admin subscriber list.
type Handler struct {
	Subs   *subscriberstore.Store
	ErrLog *errorsfeature.ErrorLogger
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Subs:   subscriberstore.New(db),
		ErrLog: errLog,
		Log:    logger,
	}
}

type subscribeInput struct {
	Email      *string `json:"email"`
	EmailOptIn bool    `json:"email_opt_in"`
}

type subscribeResponse struct {
	models.Subscriber
	Created bool `json:"created"`
}

// HandleUpsert subscribes the member or updates their preferences. The
// email defaults to the one on the identity token.
//
// Route: PUT /api/subscriptions
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	var in subscribeInput
	if err := respond.DecodeJSON(w, r, &in, shared.MaxJSONBody); err != nil {
		respond.BadRequest(w, r, "invalid JSON body")
		return
	}
	email := m.Email
	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			respond.BadRequest(w, r, "invalid email")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, created, err := h.Subs.Upsert(ctx, models.Subscriber{
		UserID:     m.UserID,
		Email:      email,
		Name:       m.DisplayName(),
		EmailOptIn: in.EmailOptIn,
	})
	if errors.Is(err, subscriberstore.ErrEmailRequired) {
		respond.BadRequest(w, r, err.Error())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "upsert subscription failed", err)
		return
	}
	if created {
		h.Log.Info("member subscribed", zap.String("user_id", m.UserID), zap.Bool("email_opt_in", sub.EmailOptIn))
	}
	respond.OK(w, subscribeResponse{Subscriber: sub, Created: created})
}

// ServeOwn returns the member's subscription.
//
// Route: GET /api/subscriptions
func (h *Handler) ServeOwn(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := h.Subs.GetByUserID(ctx, m.UserID)
	if errors.Is(err, subscriberstore.ErrNotFound) {
		respond.NotFound(w, r, "not subscribed")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "get subscription failed", err)
		return
	}
	respond.OK(w, sub)
}

// HandleDelete unsubscribes the member.
//
// Route: DELETE /api/subscriptions
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	m, _ := auth.CurrentMember(r)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Subs.DeleteByUserID(ctx, m.UserID)
	if errors.Is(err, subscriberstore.ErrNotFound) {
		respond.NotFound(w, r, "not subscribed")
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete subscription failed", err)
		return
	}
	h.Log.Info("member unsubscribed", zap.String("user_id", m.UserID))
	respond.NoContent(w)
}

type adminListResponse struct {
	paging.Page[models.Subscriber]
	Total   int64 `json:"total"`
	OptedIn int64 `json:"opted_in"`
}

// ServeAdminList lists subscribers newest first with totals.
//
// Route: GET /api/admin/subscribers?before=&limit=
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	before, ok := shared.Before(w, r)
	if !ok {
		return
	}
	limit := paging.ParseLimit(r, paging.DefaultLimit, paging.MaxLimit)
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Subs.List(ctx, before, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list subscribers failed", err)
		return
	}
	total, optedIn, err := h.Subs.Count(ctx)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "count subscribers failed", err)
		return
	}
	if page.Items == nil {
		page.Items = []models.Subscriber{}
	}
	respond.OK(w, adminListResponse{Page: page, Total: total, OptedIn: optedIn})
}
