package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/edvin/mailprov/internal/api/request"
	"github.com/edvin/mailprov/internal/api/response"
	"github.com/edvin/mailprov/internal/provision"
)

// Provisioner runs lifecycle operations. *provision.Module satisfies this
// interface.
type Provisioner interface {
	CreateAccount(ctx context.Context, p provision.Params) provision.Result
	SuspendAccount(ctx context.Context, p provision.Params) provision.Result
	UnsuspendAccount(ctx context.Context, p provision.Params) provision.Result
	TerminateAccount(ctx context.Context, p provision.Params) provision.Result
	ChangePackage(ctx context.Context, p provision.Params) provision.Result
	ChangePassword(ctx context.Context, p provision.Params) provision.Result
	SyncUsername(ctx context.Context, p provision.Params) provision.Result
	TestConnection(ctx context.Context, p provision.Params) provision.ConnectionResult
	CustomAction(ctx context.Context, action string, p provision.Params) (provision.Result, bool)
}

type operation func(ctx context.Context, p provision.Params) provision.Result

type Lifecycle struct {
	svc        Provisioner
	operations map[string]operation
}

func NewLifecycle(svc Provisioner) *Lifecycle {
	return &Lifecycle{
		svc: svc,
		operations: map[string]operation{
			"create":          svc.CreateAccount,
			"suspend":         svc.SuspendAccount,
			"unsuspend":       svc.UnsuspendAccount,
			"terminate":       svc.TerminateAccount,
			"change-package":  svc.ChangePackage,
			"change-password": svc.ChangePassword,
			"sync-username":   svc.SyncUsername,
		},
	}
}

func (h *Lifecycle) Metadata(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, provision.MetaData())
}

func (h *Lifecycle) Buttons(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusOK, provision.AdminCustomButtons())
}

// Run dispatches POST /lifecycle/{action}.
func (h *Lifecycle) Run(w http.ResponseWriter, r *http.Request) {
	action, err := request.RequireParam("action", chi.URLParam(r, "action"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	op, ok := h.operations[action]
	if !ok {
		response.WriteError(w, http.StatusNotFound, "unknown lifecycle action "+action)
		return
	}

	var p provision.Params
	if err := request.Decode(r, &p); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := op(r.Context(), p)
	logResult(r, action, p.ServiceID, result)
	response.WriteResult(w, result.String())
}

// Custom dispatches POST /lifecycle/custom/{button}.
func (h *Lifecycle) Custom(w http.ResponseWriter, r *http.Request) {
	button, err := request.RequireParam("button", chi.URLParam(r, "button"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var p provision.Params
	if err := request.Decode(r, &p); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, ok := h.svc.CustomAction(r.Context(), button, p)
	if !ok {
		response.WriteError(w, http.StatusNotFound, "unknown custom action "+button)
		return
	}
	logResult(r, button, p.ServiceID, result)
	response.WriteResult(w, result.String())
}

// TestConnection answers with a connection result even when the server
// descriptor is incomplete. Only an unparseable body is a 400.
func (h *Lifecycle) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req request.TestConnection
	if err := request.Decode(r, &req); err != nil {
		if errors.Is(err, request.ErrValidation) {
			response.WriteJSON(w, http.StatusOK, provision.ConnectionResult{Success: false, Error: err.Error()})
			return
		}
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.svc.TestConnection(r.Context(), provision.Params{Server: req.Server})
	response.WriteJSON(w, http.StatusOK, result)
}

func logResult(r *http.Request, action string, serviceID int64, result provision.Result) {
	zerolog.Ctx(r.Context()).Debug().
		Str("action", action).
		Int64("service_id", serviceID).
		Bool("ok", result.IsOK()).
		Msg("lifecycle call handled")
}
