package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

func ListModules(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := pageFrom(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var f rbac.ModuleFilter
		if f.IsActive, err = optBool(r, "is_active"); err != nil {
			respondError(w, r, lg, err)
			return
		}
		if f.ParentID, err = optUint(r, "parent_id"); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var mods []models.Module
		err = inTx(db, r, func(s *rbac.Service) error {
			mods, err = s.ListModules(p, f)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, mods)
	}
}

func GetModule(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.ModuleDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			d, err = s.ModuleDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}

func CreateModule(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rbac.ModuleCreate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var m *models.Module
		err := inTx(db, r, func(s *rbac.Service) (err error) {
			m, err = s.CreateModule(req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusCreated, m)
	}
}

func UpdateModule(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var req rbac.ModuleUpdate
		if err := decode(r, &req); err != nil {
			respondError(w, r, lg, err)
			return
		}
		var m *models.Module
		err = inTx(db, r, func(s *rbac.Service) error {
			m, err = s.UpdateModule(id, req)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, m)
	}
}

func DeleteModule(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		if err := inTx(db, r, func(s *rbac.Service) error { return s.DeleteModule(id) }); err != nil {
			respondError(w, r, lg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AssignModulePermissions(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		ids, err := decodeIDs(r, "permission_ids")
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		var d *rbac.ModuleDetail
		err = inTx(db, r, func(s *rbac.Service) error {
			if err := s.AssignModulePermissions(id, ids); err != nil {
				return err
			}
			d, err = s.ModuleDetail(id)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, d)
	}
}
