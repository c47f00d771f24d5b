package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"
	"github.com/transitcore/transit-gateway/internal/model"
	xhttp "github.com/transitcore/transit-gateway/pkg/http"
)

type TransactionService interface {
	Apply(ctx context.Context, p model.ApplyRequest) (*model.ApplyResult, error)
	Recharge(ctx context.Context, aliasNo int64, amount decimal.Decimal) (*model.ApplyResult, error)
	Usage(ctx context.Context, aliasNo int64, amount decimal.Decimal) (*model.ApplyResult, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.TransactionWithOwner, error)
	ListByMedia(ctx context.Context, aliasNo int64) ([]*model.Transaction, error)
	ListByOperation(ctx context.Context, op model.TransactionOperation) ([]*model.Transaction, error)
}

type TransactionHandler struct {
	svc TransactionService
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.GET("/transactions", h.ListTransactions)
	e.POST("/transactions", h.ApplyTransaction)
	e.POST("/transactions/recharge", h.Recharge)
	e.POST("/transactions/usage", h.Usage)
	e.GET("/transactions/media/{aliasNo}", h.ListTransactionsByMedia)
	e.GET("/transactions/type/{type}", h.ListTransactionsByType)
}

func NewTransactionHandler(transactionService TransactionService) *TransactionHandler {
	return &TransactionHandler{
		svc: transactionService,
	}
}

type applyTransactionRequest struct {
	AliasNo   int64           `json:"alias_no"`
	Amount    decimal.Decimal `json:"amount"`
	Operation string          `json:"operation"`
}

type amountRequest struct {
	AliasNo int64           `json:"alias_no"`
	Amount  decimal.Decimal `json:"amount"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *TransactionHandler) ApplyTransaction(ctx *xhttp.RequestCtx) {
	var req applyTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Apply(ctx, model.ApplyRequest{
		AliasNo:   req.AliasNo,
		Amount:    req.Amount,
		Operation: model.TransactionOperation(req.Operation),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

func (h *TransactionHandler) Recharge(ctx *xhttp.RequestCtx) {
	var req amountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Recharge(ctx, req.AliasNo, req.Amount)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

func (h *TransactionHandler) Usage(ctx *xhttp.RequestCtx) {
	var req amountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Usage(ctx, req.AliasNo, req.Amount)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "startDate"); v != "" {
		if t, e := parseTime(v); e == nil {
			f.From = &t
		} else {
			writeError(ctx, xhttp.StatusBadRequest, "invalid startDate, use RFC3339 or YYYY-MM-DD")
			return
		}
	}
	if v := query(ctx, "endDate"); v != "" {
		if t, e := parseTime(v); e == nil {
			// a bare date means end of that day, not its first instant
			if len(v) == len("2006-01-02") {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			f.To = &t
		} else {
			writeError(ctx, xhttp.StatusBadRequest, "invalid endDate, use RFC3339 or YYYY-MM-DD")
			return
		}
	}

	items, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *TransactionHandler) ListTransactionsByMedia(ctx *xhttp.RequestCtx) {
	aliasNo, err := pathInt64(ctx, "aliasNo")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid alias number")
		return
	}
	items, err := h.svc.ListByMedia(ctx, aliasNo)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *TransactionHandler) ListTransactionsByType(ctx *xhttp.RequestCtx) {
	op, _ := ctx.UserValue("type").(string)
	items, err := h.svc.ListByOperation(ctx, model.TransactionOperation(op))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}
