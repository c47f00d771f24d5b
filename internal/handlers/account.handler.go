package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/transitcore/transit-gateway/internal/model"
	xhttp "github.com/transitcore/transit-gateway/pkg/http"
)

type AccountService interface {
	Create(ctx context.Context, phoneNumber string) (*model.Account, error)
	Get(ctx context.Context, accountID int64) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	UpdatePhone(ctx context.Context, accountID int64, phoneNumber string) (*model.Account, error)
	Delete(ctx context.Context, accountID int64) (int64, error)
}

type AccountHandler struct {
	svc AccountService
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.GET("/accounts", h.ListAccounts)
	e.POST("/accounts", h.CreateAccount)
	e.GET("/accounts/{id}", h.GetAccount)
	e.PUT("/accounts/{id}", h.UpdateAccount)
	e.DELETE("/accounts/{id}", h.DeleteAccount)
}

func NewAccountHandler(accountService AccountService) *AccountHandler {
	return &AccountHandler{
		svc: accountService,
	}
}

type accountRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type deleteAccountResponse struct {
	Deleted       bool  `json:"deleted"`
	OrphanedMedia int64 `json:"orphaned_media"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *AccountHandler) ListAccounts(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *AccountHandler) CreateAccount(ctx *xhttp.RequestCtx) {
	var req accountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	acc, err := h.svc.Create(ctx, req.PhoneNumber)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, acc)
}

func (h *AccountHandler) GetAccount(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}
	acc, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, acc)
}

func (h *AccountHandler) UpdateAccount(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}
	var req accountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	acc, err := h.svc.UpdatePhone(ctx, id, req.PhoneNumber)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, acc)
}

func (h *AccountHandler) DeleteAccount(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}
	orphaned, err := h.svc.Delete(ctx, id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, deleteAccountResponse{Deleted: true, OrphanedMedia: orphaned})
}
