package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/auth"
	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

// personOwner resolves the user whose profile the request targets: the {id}
// path parameter when present, otherwise the caller. Only the owner or a
// superuser passes.
func personOwner(r *http.Request) (uint, error) {
	if chi.URLParam(r, "id") == "" {
		return auth.CurrentUser(r.Context()).ID, nil
	}
	id, err := idParam(r, "id")
	if err != nil {
		return 0, err
	}
	if !auth.CanAccessUser(r.Context(), id) {
		return 0, apperr.Forbidden("not enough privileges")
	}
	return id, nil
}

func GetPerson(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := personOwner(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var p *models.Person
		err = inTx(db, r, func(s *rbac.Service) error {
			p, err = s.GetPerson(uid)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, p)
	}
}

func writePerson(db *gorm.DB, lg *zap.SugaredLogger, status int, write func(s *rbac.Service, userID uint, in rbac.PersonInput) (*models.Person, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := personOwner(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var in rbac.PersonInput
		if err := decode(r, &in); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var p *models.Person
		err = inTx(db, r, func(s *rbac.Service) error {
			p, err = write(s, uid, in)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, status, p)
	}
}

func CreatePerson(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return writePerson(db, lg, http.StatusCreated, (*rbac.Service).CreatePerson)
}

func UpdatePerson(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return writePerson(db, lg, http.StatusOK, (*rbac.Service).UpdatePerson)
}

func DeletePerson(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := personOwner(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := inTx(db, r, func(s *rbac.Service) error { return s.DeletePerson(uid) }); err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
