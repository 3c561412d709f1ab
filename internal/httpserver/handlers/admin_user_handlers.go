package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/auth"
	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

func ListUsers(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := pageFrom(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var users []models.User
		err = inTx(db, r, func(s *rbac.Service) error {
			users, err = s.ListUsers(p, r.URL.Query().Get("search"))
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, users)
	}
}

func GetUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.UserDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			d, err = s.UserDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		// Profiles are private to their owner and superusers.
		if !auth.CanAccessUser(r.Context(), id) {
			d.Person = nil
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}

func CreateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.UserCreate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var u *models.User
		err := inTx(db, r, func(s *rbac.Service) (err error) {
			u, err = s.CreateUser(req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusCreated, u)
	}
}

// UpdateUser lets a user edit their own account. Changing activation,
// superuser status or roles needs a superuser.
func UpdateUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if !auth.CanAccessUser(r.Context(), id) {
			forbidden(w, r)
			return
		}
		var req rbac.UserUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		if req.Privileged() && !auth.CurrentUser(r.Context()).IsSuperuser {
			forbidden(w, r)
			return
		}
		var u *models.User
		err = inTx(db, r, func(s *rbac.Service) error {
			u, err = s.UpdateUser(id, req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, u)
	}
}

func DeleteUser(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := inTx(db, r, func(s *rbac.Service) error { return s.DeleteUser(id) }); err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AssignUserRoles(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		ids, err := decodeIDs(r, "role_ids")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.UserDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			if err := s.AssignRoles(id, ids); err != nil {
				return err
			}
			d, err = s.UserDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}

func UserModules(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var mods []models.Module
		err = inTx(db, r, func(s *rbac.Service) error {
			mods, err = s.EffectiveModules(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, mods)
	}
}
