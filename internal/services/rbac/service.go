// Package rbac implements user, role, module, permission and person
// administration on top of gorm. A Service is bound to one *gorm.DB, which
// the HTTP layer opens as a transaction per request.
package rbac

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"rbacadmin/internal/apperr"
	"rbacadmin/internal/models"
)

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

type Page struct {
	Skip  int
	Limit int
}

func (p Page) apply(q *gorm.DB) *gorm.DB {
	limit := p.Limit
	if limit <= 0 || limit > MaxLimit {
		limit = DefaultLimit
	}
	skip := p.Skip
	if skip < 0 {
		skip = 0
	}
	return q.Offset(skip).Limit(limit)
}

type Service struct {
	db    *gorm.DB
	actor *uint
	now   func() time.Time
}

// New binds a Service to db. actor is recorded on audit entries and may be nil.
func New(db *gorm.DB, actor *models.User) *Service {
	s := &Service{db: db, now: time.Now}
	if actor != nil {
		id := actor.ID
		s.actor = &id
	}
	return s
}

// notFound maps gorm.ErrRecordNotFound to a coded 404 for resource.
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(resource)
	}
	return err
}

// exists reports whether a row of model matches the condition.
func (s *Service) exists(model any, query string, args ...any) (bool, error) {
	var n int64
	if err := s.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// uniqueIDs drops zero and repeated ids, keeping first-seen order.
func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// requireIDs fails with 404 naming the ids of model that do not exist.
func (s *Service) requireIDs(model any, resource string, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	var found []uint
	if err := s.db.Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}
	have := make(map[uint]bool, len(found))
	for _, id := range found {
		have[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return apperr.Newf(apperr.CodeNotFound, "%s not found: %v", resource, missing)
}

// replaceLinks deletes every junction row of type T owned by ownerID and
// inserts rows in their place.
func replaceLinks[T any](db *gorm.DB, ownerColumn string, ownerID uint, rows []T) error {
	if err := db.Where(fmt.Sprintf("%s = ?", ownerColumn), ownerID).Delete(new(T)).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return db.Create(&rows).Error
}

func (s *Service) audit(action, entity string, id uint, meta any) error {
	entry := models.AuditLog{
		ActorID:  s.actor,
		Action:   action,
		Entity:   entity,
		EntityID: id,
		Metadata: models.NewJSONB(meta),
	}
	return s.db.Create(&entry).Error
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
