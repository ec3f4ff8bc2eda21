package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := defaultPageSize
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 {
		pageSize = min(s, maxPageSize)
	}
	return page, pageSize
}

// getUserID returns the authenticated caller, if any.
func getUserID(ctx *gin.Context) (string, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}

func requireUserID(ctx *gin.Context) (string, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}

// respondError maps a service error onto an HTTP status and business code.
func respondError(ctx *gin.Context, err error) {
	status, code := http.StatusInternalServerError, 50000
	switch services.KindOf(err) {
	case services.KindNotFound:
		status, code = http.StatusNotFound, 40401
	case services.KindForbidden:
		status, code = http.StatusForbidden, 40301
	case services.KindInvalidArgument:
		status, code = http.StatusBadRequest, 40001
	case services.KindDepthExceeded:
		status, code = http.StatusBadRequest, 40002
	case services.KindRateLimitExceeded:
		status, code = http.StatusTooManyRequests, 42902
	case services.KindUnavailable:
		status, code = http.StatusServiceUnavailable, 50301
	}

	msg := "internal error"
	var se *services.Error
	if errors.As(err, &se) && status < http.StatusInternalServerError {
		msg = se.Error()
	} else if status == http.StatusServiceUnavailable {
		msg = "service temporarily unavailable"
	}
	if status >= http.StatusInternalServerError {
		utils.Sugar.Errorw("request failed", "path", ctx.Request.URL.Path, "error", err)
	}
	utils.Error(ctx, status, code, msg)
}

func badRequest(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, 40000, "invalid request payload")
}
