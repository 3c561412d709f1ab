package handlers

import (
	"mime"
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/auth"
	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

func isJSON(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "application/json"
}

func readLogin(r *http.Request, allowForm bool) (loginReq, error) {
	var req loginReq
	if allowForm && !isJSON(r) {
		if err := r.ParseForm(); err != nil {
			return req, apperr.InvalidInput("form", err.Error())
		}
		req.Username = r.PostForm.Get("username")
		req.Password = r.PostForm.Get("password")
	} else if err := decode(r, &req); err != nil {
		return req, err
	}
	if req.Username == "" || req.Password == "" {
		return req, apperr.New(apperr.CodeInvalidInput, "username and password are required")
	}
	return req, nil
}

func login(db *gorm.DB, lg *zap.SugaredLogger, tokens *auth.Tokens, allowForm bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := readLogin(r, allowForm)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var resp tokenResp
		err = inTx(db, r, func(s *rbac.Service) error {
			u, err := s.Authenticate(req.Username, req.Password)
			if err != nil {
				return err
			}
			tok, claims, err := tokens.Sign(u.Username, u.ID)
			if err != nil {
				return err
			}
			if err := s.StartSession(u, claims); err != nil {
				return err
			}
			resp = tokenResp{AccessToken: tok, TokenType: "bearer", User: u}
			return nil
		})
		if err != nil {
			if apperr.IsCode(err, apperr.CodeUnauthorized) {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			respondError(w, r, lg, err)
			return
		}
		lg.Infow("login", "username", resp.User.Username, "user_id", resp.User.ID)
		respondJSON(w, r, http.StatusOK, resp)
	}
}

// Login accepts form-encoded or JSON credentials.
func Login(db *gorm.DB, lg *zap.SugaredLogger, tokens *auth.Tokens) http.HandlerFunc {
	return login(db, lg, tokens, true)
}

func LoginJSON(db *gorm.DB, lg *zap.SugaredLogger, tokens *auth.Tokens) http.HandlerFunc {
	return login(db, lg, tokens, false)
}

func Me(lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, r, http.StatusOK, auth.CurrentUser(r.Context()))
	}
}

func Logout(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jti := auth.FromContext(r.Context()).JWTID
		if err := inTx(db, r, func(s *rbac.Service) error { return s.RevokeSession(jti) }); err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func ChangePassword(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req changePasswordReq
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		uid := auth.CurrentUser(r.Context()).ID
		err := inTx(db, r, func(s *rbac.Service) error {
			return s.ChangePassword(uid, req.CurrentPassword, req.NewPassword)
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
