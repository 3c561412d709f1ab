package models

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects with the named driver ("postgres" or "sqlite"). SQL warnings
// and errors go to lg; a nil lg discards them.
func Open(driver, dsn string, lg *zap.SugaredLogger) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: gormLogger(lg)}
	switch driver {
	case "", "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{}, &Role{}, &Module{}, &Permission{}, &Person{},
		&UserRole{}, &RoleModule{}, &RolePermission{}, &ModulePermission{},
		&AuditLog{}, &Session{},
	)
}

// gormLogger skips ErrRecordNotFound, which callers map to 404s.
func gormLogger(lg *zap.SugaredLogger) logger.Interface {
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	return logger.New(zap.NewStdLog(lg.Desugar().Named("gorm")), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
