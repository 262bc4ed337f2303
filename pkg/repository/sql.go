package repository

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// SQL is the relational remote store. Collections map onto the
// menu_items and orders tables.
type SQL struct {
	db     *gorm.DB
	logger *zap.Logger
}

func OpenMySQL(cfg *config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get MySQL handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	return db, nil
}

func NewSQL(db *gorm.DB, logger *zap.Logger) (*SQL, error) {
	if err := db.AutoMigrate(&models.MenuItem{}, &models.Order{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &SQL{db: db, logger: logger.Named("sql")}, nil
}

func (s *SQL) Name() string {
	return "sql"
}

func (s *SQL) Probe(ctx context.Context) error {
	var items []models.MenuItem
	return s.db.WithContext(ctx).Limit(1).Find(&items).Error
}

func (s *SQL) List(ctx context.Context, c Collection, dest interface{}) (bool, error) {
	model, err := modelFor(c)
	if err != nil {
		return false, err
	}
	if err := s.db.WithContext(ctx).Model(model).Order("created_at").Find(dest).Error; err != nil {
		return false, fmt.Errorf("failed to list %s: %w", c.Name, err)
	}
	return true, nil
}

func (s *SQL) Put(ctx context.Context, c Collection, id string, record interface{}) error {
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", c.Name, id, err)
	}
	return nil
}

func (s *SQL) Update(ctx context.Context, c Collection, id string, fields Fields) error {
	model, err := modelFor(c)
	if err != nil {
		return err
	}

	columns := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		columns[columnName(k)] = v
	}

	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(columns).Error; err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", c.Name, id, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, c Collection, id string) error {
	model, err := modelFor(c)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(model).Error; err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", c.Name, id, err)
	}
	return nil
}

func modelFor(c Collection) (interface{}, error) {
	switch c.Name {
	case CollectionMenuItems:
		return &models.MenuItem{}, nil
	case CollectionOrders:
		return &models.Order{}, nil
	}
	return nil, fmt.Errorf("unknown collection %q", c.Name)
}

// columnName turns a JSON field name such as "updatedAt" into "updated_at".
func columnName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
