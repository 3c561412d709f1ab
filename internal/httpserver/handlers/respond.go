package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/auth"
	"rbacadmin/internal/services/rbac"
)

type debugKey struct{}

// Debug marks requests so error responses may include internal details.
func Debug(on bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), debugKey{}, on)))
		})
	}
}

func debugOn(r *http.Request) bool {
	on, _ := r.Context().Value(debugKey{}).(bool)
	return on
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func respondDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	respondJSON(w, r, status, map[string]string{"detail": detail})
}

// respondError writes err as {"detail": ...} with the status of its code.
// Uncoded errors are logged and reported as 500.
func respondError(w http.ResponseWriter, r *http.Request, lg *zap.SugaredLogger, err error) {
	code := apperr.GetCode(err)
	if code == apperr.CodeInternal {
		lg.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		detail := "internal server error"
		if debugOn(r) {
			detail = err.Error()
		}
		respondDetail(w, r, http.StatusInternalServerError, detail)
		return
	}
	respondDetail(w, r, apperr.HTTPStatus(code), apperr.Message(err))
}

// LoginLimited writes the rejection for a client over the login limit.
func LoginLimited(lg *zap.SugaredLogger) func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	return func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
		respondError(w, r, lg, apperr.Newf(apperr.CodeRateLimited,
			"too many login attempts, try again in %s", retryAfter.Round(time.Second)))
	}
}

// inTx runs fn with a Service bound to a transaction on the request context.
// The current user, if any, is recorded as the audit actor.
func inTx(db *gorm.DB, r *http.Request, fn func(s *rbac.Service) error) error {
	return db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		return fn(rbac.New(tx, auth.CurrentUser(r.Context())))
	})
}

func decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return apperr.InvalidInput("request body", err.Error())
	}
	return nil
}

// decodeIDs accepts either a bare JSON array of ids or an object holding the
// array under key.
func decodeIDs(r *http.Request, key string) ([]uint, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apperr.InvalidInput("request body", err.Error())
	}
	body = bytes.TrimSpace(body)
	var ids []uint
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &ids); err != nil {
			return nil, apperr.InvalidInput("request body", err.Error())
		}
		return ids, nil
	}
	var wrapped map[string][]uint
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, apperr.InvalidInput("request body", err.Error())
	}
	ids, ok := wrapped[key]
	if !ok {
		return nil, apperr.InvalidInput(key, "is required")
	}
	return ids, nil
}

func idParam(r *http.Request, name string) (uint, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.InvalidInput(name, "must be a positive integer")
	}
	return uint(v), nil
}

func pageFrom(r *http.Request) (rbac.Page, error) {
	p := rbac.Page{Skip: 0, Limit: rbac.DefaultLimit}
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, apperr.InvalidInput("skip", "must be a non-negative integer")
		}
		p.Skip = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > rbac.MaxLimit {
			return p, apperr.Newf(apperr.CodeInvalidInput, "invalid limit: must be between 1 and %d", rbac.MaxLimit)
		}
		p.Limit = n
	}
	return p, nil
}

func optBool(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.InvalidInput(name, "must be a boolean")
	}
	return &b, nil
}

func optUint(r *http.Request, name string) (*uint, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, apperr.InvalidInput(name, "must be a non-negative integer")
	}
	u := uint(n)
	return &u, nil
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	respondDetail(w, r, http.StatusForbidden, "not enough privileges")
}
