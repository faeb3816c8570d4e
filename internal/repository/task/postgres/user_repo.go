package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskwise/internal/logger"
	"taskwise/internal/models/user"
	repo "taskwise/internal/repository"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const userColumns = `id, email, display_name, photo_url, role, status, department`

func scanUser(row pgx.Row) (*user.AppUser, error) {
	u := &user.AppUser{}
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PhotoURL, &u.Role, &u.Status, &u.Department)
	return u, err
}

func (s *Storage) GetUser(ctx context.Context, id string) (*user.AppUser, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		err = mapError(err)
		if !errors.Is(err, repo.ErrNotFound) {
			logger.Error("Repository: Failed to get user", err, zap.String("user_id", id))
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *Storage) ListUsers(ctx context.Context, department string) ([]*user.AppUser, error) {
	start := time.Now()

	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if department != "" {
		query += ` WHERE department = $1`
		args = append(args, department)
	}
	query += ` ORDER BY email`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Failed to list users", err)
		return nil, fmt.Errorf("list users: %w", mapError(err))
	}
	defer rows.Close()

	users := []*user.AppUser{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.Warn("Repository: Failed to scan user", zap.Error(err))
			continue
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", mapError(err))
	}

	warnIfSlow("list_users", start, slowQuery)
	return users, nil
}

func (s *Storage) SaveUser(ctx context.Context, u *user.AppUser) error {
	query := `INSERT INTO users (` + userColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				email = EXCLUDED.email,
				display_name = EXCLUDED.display_name,
				photo_url = EXCLUDED.photo_url,
				role = EXCLUDED.role,
				status = EXCLUDED.status,
				department = EXCLUDED.department`

	_, err := s.pool.Exec(ctx, query, u.ID, u.Email, u.DisplayName, u.PhotoURL, u.Role, u.Status, u.Department)
	if err != nil {
		logger.Error("Repository: Failed to save user", err, zap.String("user_id", u.ID))
		return fmt.Errorf("save user %s: %w", u.ID, mapError(err))
	}
	return nil
}
