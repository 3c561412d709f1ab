package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rbacadmin/internal/auth"
	"rbacadmin/internal/models"
	"rbacadmin/internal/services/rbac"
)

// MyLogs returns audit entries recorded for the caller. Superusers can pass
// ?all=1 to see every actor.
func MyLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := pageFrom(r)
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		u := auth.CurrentUser(r.Context())
		actor := &u.ID
		if r.URL.Query().Get("all") == "1" && u.IsSuperuser {
			actor = nil
		}
		var logs []models.AuditLog
		err = inTx(db, r, func(s *rbac.Service) error {
			logs, err = s.ListAuditLogs(p, actor)
			return err
		})
		if err != nil {
			respondError(w, r, lg, err)
			return
		}
		respondJSON(w, r, http.StatusOK, logs)
	}
}
