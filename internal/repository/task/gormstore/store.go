// Package gormstore persists the board in SQLite or MySQL through GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/models/task"
	repo "taskwise/internal/repository"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DialectSQLite = "sqlite"
const DialectMySQL = "mysql"

type Storage struct {
	db      *gorm.DB
	dialect string
	clock   func() time.Time
}

// Open connects to the database. For MySQL the DSN must carry parseTime=true.
func Open(dialect, dsn string) (*Storage, error) {
	var dialector gorm.Dialector
	switch dialect {
	case DialectSQLite:
		dialector = sqlite.Open(dsn)
	case DialectMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("gormstore: unknown dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: connect %s: %w", dialect, err)
	}

	if dialect == DialectSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("gormstore: sql handle: %w", err)
		}
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Info("Repository: Connected", zap.String("dialect", dialect))
	return &Storage{db: db, dialect: dialect, clock: time.Now}, nil
}

// SetClock replaces the time source used for server-stamped fields.
func (s *Storage) SetClock(clock func() time.Time) {
	s.clock = clock
}

func (s *Storage) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("gormstore: auto-migrate: %w", err)
	}
	logger.Info("Repository: Schema migrated", zap.String("dialect", s.dialect))
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Error("Repository: Ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	logger.Info("Repository: Closing connections", zap.String("dialect", s.dialect))
	return sqlDB.Close()
}

// MySQL privilege errors: 1044 database, 1045 login, 1142 table, 1143 column.
var mysqlDenied = map[uint16]bool{1044: true, 1045: true, 1142: true, 1143: true}

func mapError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repo.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repo.ErrConflict
	}

	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) && mysqlDenied[myErr.Number] {
		return fmt.Errorf("%s: %w", myErr.Message, repo.ErrPermissionDenied)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrAuth:
			return fmt.Errorf("%s: %w", liteErr.Error(), repo.ErrPermissionDenied)
		}
	}
	return err
}

func (s *Storage) ListTasks(ctx context.Context, scope repo.Scope) ([]*task.Task, error) {
	if scope.Empty() {
		return []*task.Task{}, nil
	}

	q := s.db.WithContext(ctx).Model(&taskRow{})
	switch {
	case scope.All:
	case scope.Department != "":
		q = q.Where("department = ?", scope.Department)
	default:
		q = q.Where("user_id = ?", scope.UserID)
	}

	var rows []taskRow
	if err := q.Order("ord").Order("created_at").Order("id").Find(&rows).Error; err != nil {
		logger.Error("Repository: Failed to list tasks", err)
		return nil, fmt.Errorf("list tasks: %w", mapError(err))
	}

	tasks := make([]*task.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toTask())
	}
	return tasks, nil
}

func (s *Storage) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var row taskRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, mapError(err))
	}
	return row.toTask(), nil
}

// Commit applies the batch inside one transaction. Updates are read and
// rewritten so history appends work the same on every dialect.
func (s *Storage) Commit(ctx context.Context, batch repo.Batch) (time.Time, error) {
	now := s.clock().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range batch.Creates {
			row := toTaskRow(t)
			if row.CreatedAt.IsZero() {
				row.CreatedAt = now
			}
			if t.Status == task.StatusDone && row.DoneAt == nil {
				stamp := now
				row.DoneAt = &stamp
			}
			if err := tx.Create(row).Error; err != nil {
				return fmt.Errorf("create task %s: %w", t.ID, mapError(err))
			}
		}

		for _, u := range batch.Updates {
			var row taskRow
			if err := tx.First(&row, "id = ?", u.ID).Error; err != nil {
				return fmt.Errorf("update task %s: %w", u.ID, mapError(err))
			}
			t := row.toTask()
			u.Apply(t, now)
			if err := tx.Save(toTaskRow(t)).Error; err != nil {
				return fmt.Errorf("update task %s: %w", u.ID, mapError(err))
			}
		}

		for _, id := range batch.Deletes {
			res := tx.Delete(&taskRow{}, "id = ?", id)
			if res.Error != nil {
				return fmt.Errorf("delete task %s: %w", id, mapError(res.Error))
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("delete task %s: %w", id, repo.ErrNotFound)
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Repository: Batch rejected", err, zap.Int("writes", batch.Len()))
		return time.Time{}, err
	}

	logger.Debug("Repository: Batch committed",
		zap.Int("creates", len(batch.Creates)),
		zap.Int("updates", len(batch.Updates)),
		zap.Int("deletes", len(batch.Deletes)))
	return now, nil
}
