package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
	xhttp "github.com/transitcore/transit-gateway/pkg/http"
)

type MediaService interface {
	Create(ctx context.Context, p model.MediaCreateRequest) (*model.Media, error)
	Get(ctx context.Context, aliasNo int64) (*model.Media, error)
	List(ctx context.Context) ([]*model.Media, error)
	ListByStatus(ctx context.Context, status model.MediaStatus) ([]*model.Media, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*model.Media, error)
	ListOrphans(ctx context.Context) ([]*model.Media, error)
	SetBalance(ctx context.Context, aliasNo int64, balance decimal.Decimal) (*model.Media, error)
	SetStatus(ctx context.Context, aliasNo int64, status model.MediaStatus) (*model.Media, error)
	Delete(ctx context.Context, aliasNo int64) error
}

type MediaHandler struct {
	svc MediaService
}

func RegisterMediaRoutes(e *router.Group, h *MediaHandler) {
	e.GET("/media", h.ListMedia)
	e.POST("/media", h.CreateMedia)
	e.GET("/media/orphan", h.ListOrphanMedia)
	e.GET("/media/status/{status}", h.ListMediaByStatus)
	e.GET("/media/account/{accountId}", h.ListMediaByAccount)
	e.GET("/media/{aliasNo}", h.GetMedia)
	e.DELETE("/media/{aliasNo}", h.DeleteMedia)
	e.PUT("/media/{aliasNo}/balance", h.SetMediaBalance)
	e.PUT("/media/{aliasNo}/status", h.SetMediaStatus)
}

func NewMediaHandler(mediaService MediaService) *MediaHandler {
	return &MediaHandler{
		svc: mediaService,
	}
}

type createMediaRequest struct {
	AccountID  *int64          `json:"account_id"`
	ExpiryDate string          `json:"expiry_date"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
}

type setBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *MediaHandler) ListMedia(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *MediaHandler) CreateMedia(ctx *xhttp.RequestCtx) {
	var req createMediaRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	// account_id must be present, an explicit null creates an orphan card
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(ctx.PostBody(), &fields); err == nil {
		if _, ok := fields["account_id"]; !ok {
			writeError(ctx, xhttp.StatusBadRequest, "account_id is required, use null for an orphan card")
			return
		}
	}

	var expiry time.Time
	if req.ExpiryDate != "" {
		t, err := parseTime(req.ExpiryDate)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid expiry_date, use RFC3339 or YYYY-MM-DD")
			return
		}
		expiry = t
	}

	m, err := h.svc.Create(ctx, model.MediaCreateRequest{
		AccountID:  req.AccountID,
		ExpiryDate: expiry,
		Balance:    req.Balance,
		Status:     model.MediaStatus(req.Status),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, m)
}

func (h *MediaHandler) ListOrphanMedia(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListOrphans(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *MediaHandler) ListMediaByStatus(ctx *xhttp.RequestCtx) {
	status, _ := ctx.UserValue("status").(string)
	items, err := h.svc.ListByStatus(ctx, model.MediaStatus(status))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *MediaHandler) ListMediaByAccount(ctx *xhttp.RequestCtx) {
	accountID, err := pathInt64(ctx, "accountId")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}
	items, err := h.svc.ListByAccount(ctx, accountID)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *MediaHandler) GetMedia(ctx *xhttp.RequestCtx) {
	aliasNo, err := pathInt64(ctx, "aliasNo")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid alias number")
		return
	}
	m, err := h.svc.Get(ctx, aliasNo)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, m)
}

func (h *MediaHandler) DeleteMedia(ctx *xhttp.RequestCtx) {
	aliasNo, err := pathInt64(ctx, "aliasNo")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid alias number")
		return
	}
	if err := h.svc.Delete(ctx, aliasNo); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]bool{"deleted": true})
}

func (h *MediaHandler) SetMediaBalance(ctx *xhttp.RequestCtx) {
	aliasNo, err := pathInt64(ctx, "aliasNo")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid alias number")
		return
	}
	var req setBalanceRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	m, err := h.svc.SetBalance(ctx, aliasNo, req.Balance)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, m)
}

func (h *MediaHandler) SetMediaStatus(ctx *xhttp.RequestCtx) {
	aliasNo, err := pathInt64(ctx, "aliasNo")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid alias number")
		return
	}
	var req setStatusRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	m, err := h.svc.SetStatus(ctx, aliasNo, model.MediaStatus(req.Status))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, m)
}
