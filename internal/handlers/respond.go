package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/transitcore/transit-gateway/internal/repository"
	"github.com/transitcore/transit-gateway/internal/services"
	xhttp "github.com/transitcore/transit-gateway/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error onto the HTTP status it represents.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrMediaNotFound),
		errors.Is(err, services.ErrAccountNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicatePhone),
		errors.Is(err, repository.ErrConcurrentUpdate):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidPhoneNumber),
		errors.Is(err, services.ErrMediaBlacklisted),
		errors.Is(err, services.ErrInsufficientBalance):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	default:
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, _ := ctx.UserValue(name).(string)
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func parseTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
