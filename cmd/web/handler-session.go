package main

import (
	"log/slog"
	"net/http"

	"github.com/steviebd/swole-tracker/internal/errors"
)

type devLoginRequest struct {
	UserID int `json:"userId"`
}

// devLoginPOST authenticates the session as any user. It is only routed when development login is enabled.
func (app *application) devLoginPOST(w http.ResponseWriter, r *http.Request) {
	var req devLoginRequest
	if err := readJSON(w, r, &req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.UserID <= 0 {
		app.clientError(w, r, http.StatusBadRequest, "userId must be positive")
		return
	}

	ctx := r.Context()
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	app.sessionManager.Put(ctx, userIDSessionKey, req.UserID)
	app.logger.LogAttrs(ctx, slog.LevelInfo, "development login", slog.Int("user_id", req.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func (app *application) logoutPOST(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := app.sessionManager.RenewToken(ctx); err != nil {
		app.serverError(w, r, errors.Wrap(err, "renew session token"))
		return
	}
	app.sessionManager.Remove(ctx, userIDSessionKey)
	w.WriteHeader(http.StatusNoContent)
}
