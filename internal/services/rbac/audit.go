package rbac

import "rbacadmin/internal/models"

// ListAuditLogs returns entries newest first. A nil actorID lists every actor.
func (s *Service) ListAuditLogs(p Page, actorID *uint) ([]models.AuditLog, error) {
	q := s.db.Model(&models.AuditLog{})
	if actorID != nil {
		q = q.Where("actor_id = ?", *actorID)
	}
	logs := []models.AuditLog{}
	err := p.apply(q.Order("created_at DESC").Order("id DESC")).Find(&logs).Error
	return logs, err
}
