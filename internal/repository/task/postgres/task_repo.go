package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/models/task"
	repo "taskwise/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const slowQuery = 100 * time.Millisecond

type Storage struct {
	pool       *pgxpool.Pool
	connString string
}

// PoolOption tunes the connection pool.
type PoolOption func(*pgxpool.Config)

func WithMaxConns(n int) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = int32(n)
		}
	}
}

func WithMinConns(n int) PoolOption {
	return func(c *pgxpool.Config) {
		if n >= 0 {
			c.MinConns = int32(n)
		}
	}
}

func WithIdleTimeout(d time.Duration) PoolOption {
	return func(c *pgxpool.Config) {
		if d > 0 {
			c.MaxConnIdleTime = d
		}
	}
}

func New(ctx context.Context, connString string, opts ...PoolOption) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Failed to parse pool config", err)
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	for _, opt := range opts {
		opt(config)
	}
	if config.MinConns > config.MaxConns {
		config.MinConns = config.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Failed to create pool", err)
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		logger.Error("Repository: Ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: Connected to PostgreSQL")
	return &Storage{pool: pool, connString: connString}, nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	logger.Info("Repository: PostgreSQL connections closed")
	return nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: Ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	logger.Debug("Repository: Connection is stable")
	return nil
}

func warnIfSlow(op string, start time.Time, threshold time.Duration) {
	if elapsed := time.Since(start); elapsed > threshold {
		logger.Warn("Repository: Slow query", zap.String("op", op), zap.Duration("ms", elapsed))
	}
}

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, repo.ErrConflict)
		case "42501":
			return fmt.Errorf("%s: %w", pgErr.Message, repo.ErrPermissionDenied)
		}
	}
	return err
}

const taskColumns = `id, name, department, comments, status, user_id, ord, created_at, done_at, is_reviewed, history`

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	var history []byte
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Department,
		&t.Comments,
		&t.Status,
		&t.UserID,
		&t.Order,
		&t.CreatedAt,
		&t.DoneAt,
		&t.IsReviewed,
		&history,
	)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &t.History); err != nil {
			return nil, fmt.Errorf("decode history of %s: %w", t.ID, err)
		}
	}
	return t, nil
}

func (s *Storage) ListTasks(ctx context.Context, scope repo.Scope) ([]*task.Task, error) {
	if scope.Empty() {
		return []*task.Task{}, nil
	}
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	switch {
	case scope.All:
	case scope.Department != "":
		query += ` WHERE department = $1`
		args = append(args, scope.Department)
	default:
		query += ` WHERE user_id = $1`
		args = append(args, scope.UserID)
	}
	query += ` ORDER BY ord, created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Failed to list tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("list tasks: %w", mapError(err))
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: Failed to scan task", err)
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: Row iteration failed", err)
		return nil, fmt.Errorf("iterate tasks: %w", mapError(err))
	}

	warnIfSlow("list_tasks", start, slowQuery+time.Millisecond*time.Duration(len(tasks)))
	return tasks, nil
}

func (s *Storage) GetTask(ctx context.Context, id string) (*task.Task, error) {
	start := time.Now()

	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, repo.ErrNotFound) {
			logger.Error("Repository: Failed to get task", err, zap.String("task_id", id))
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}

	warnIfSlow("get_task", start, slowQuery)
	return t, nil
}

type queued struct {
	op      string
	id      string
	mustHit bool
}

// Commit runs the batch in one transaction. Server time comes from the
// database so every stamp in the batch agrees.
func (s *Storage) Commit(ctx context.Context, batch repo.Batch) (time.Time, error) {
	start := time.Now()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		logger.Error("Repository: Failed to begin transaction", err)
		return time.Time{}, fmt.Errorf("begin: %w", mapError(err))
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Warn("Repository: Rollback failed", zap.Error(rbErr))
		}
	}()

	var now time.Time
	if err := tx.QueryRow(ctx, `SELECT NOW()`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("server time: %w", mapError(err))
	}

	b := &pgx.Batch{}
	var ops []queued

	for _, t := range batch.Creates {
		history, err := json.Marshal(historyOrEmpty(t.History))
		if err != nil {
			return time.Time{}, fmt.Errorf("encode history of %s: %w", t.ID, err)
		}
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		doneAt := t.DoneAt
		if t.Status == task.StatusDone && doneAt == nil {
			doneAt = &now
		}
		b.Queue(`INSERT INTO tasks (`+taskColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb)`,
			t.ID, t.Name, t.Department, t.Comments, t.Status, t.UserID, t.Order,
			createdAt, doneAt, t.IsReviewed, string(history))
		ops = append(ops, queued{op: "create", id: t.ID})
	}

	for _, u := range batch.Updates {
		query, args, err := updateQuery(u, now)
		if err != nil {
			return time.Time{}, err
		}
		b.Queue(query, args...)
		ops = append(ops, queued{op: "update", id: u.ID, mustHit: true})
	}

	for _, id := range batch.Deletes {
		b.Queue(`DELETE FROM tasks WHERE id = $1`, id)
		ops = append(ops, queued{op: "delete", id: id, mustHit: true})
	}

	br := tx.SendBatch(ctx, b)
	for _, q := range ops {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			logger.Error("Repository: Batch statement failed", err, zap.String("op", q.op), zap.String("task_id", q.id))
			return time.Time{}, fmt.Errorf("%s task %s: %w", q.op, q.id, mapError(err))
		}
		if q.mustHit && tag.RowsAffected() == 0 {
			_ = br.Close()
			return time.Time{}, fmt.Errorf("%s task %s: %w", q.op, q.id, repo.ErrNotFound)
		}
	}
	if err := br.Close(); err != nil {
		return time.Time{}, fmt.Errorf("close batch: %w", mapError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Commit failed", err)
		return time.Time{}, fmt.Errorf("commit: %w", mapError(err))
	}

	logger.Debug("Repository: Batch committed",
		zap.Int("creates", len(batch.Creates)),
		zap.Int("updates", len(batch.Updates)),
		zap.Int("deletes", len(batch.Deletes)))
	warnIfSlow("commit", start, slowQuery+time.Millisecond*5*time.Duration(batch.Len()))
	return now, nil
}

func historyOrEmpty(h []task.HistoryEntry) []task.HistoryEntry {
	if h == nil {
		return []task.HistoryEntry{}
	}
	return h
}

func updateQuery(u *repo.TaskUpdate, now time.Time) (string, []any, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Department != nil {
		set("department", *u.Department)
	}
	if u.UserID != nil {
		set("user_id", *u.UserID)
	}
	if u.Comments != nil {
		set("comments", *u.Comments)
	}
	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.Order != nil {
		set("ord", *u.Order)
	}
	switch u.DoneAt {
	case repo.DoneAtServerNow:
		set("done_at", now)
	case repo.DoneAtClear:
		sets = append(sets, "done_at = NULL")
	}
	if u.IsReviewed != nil {
		set("is_reviewed", *u.IsReviewed)
	}
	if len(u.History) > 0 {
		history, err := json.Marshal(u.History)
		if err != nil {
			return "", nil, fmt.Errorf("encode history of %s: %w", u.ID, err)
		}
		args = append(args, string(history))
		sets = append(sets, fmt.Sprintf("history = history || $%d::jsonb", len(args)))
	}
	if len(sets) == 0 {
		// touch the row so a missing id still reports not found
		sets = append(sets, "id = id")
	}

	args = append(args, u.ID)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	return query, args, nil
}
