package postgres

import (
	"context"
	"fmt"

	"taskwise/internal/logger"
	"taskwise/internal/models/department"
	repo "taskwise/internal/repository"

	"go.uber.org/zap"
)

func (s *Storage) ListDepartments(ctx context.Context) ([]*department.Department, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, color FROM departments ORDER BY name`)
	if err != nil {
		logger.Error("Repository: Failed to list departments", err)
		return nil, fmt.Errorf("list departments: %w", mapError(err))
	}
	defer rows.Close()

	deps := []*department.Department{}
	for rows.Next() {
		d := &department.Department{}
		if err := rows.Scan(&d.ID, &d.Name, &d.Color); err != nil {
			logger.Warn("Repository: Failed to scan department", zap.Error(err))
			continue
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", mapError(err))
	}
	return deps, nil
}

func (s *Storage) GetDepartment(ctx context.Context, id string) (*department.Department, error) {
	d := &department.Department{}
	err := s.pool.QueryRow(ctx, `SELECT id, name, color FROM departments WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Color)
	if err != nil {
		return nil, fmt.Errorf("get department %s: %w", id, mapError(err))
	}
	return d, nil
}

func (s *Storage) CreateDepartment(ctx context.Context, d *department.Department) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO departments (id, name, color) VALUES ($1, $2, $3)`, d.ID, d.Name, d.Color)
	if err != nil {
		logger.Error("Repository: Failed to create department", err, zap.String("name", d.Name))
		return fmt.Errorf("create department: %w", mapError(err))
	}
	return nil
}

func (s *Storage) UpdateDepartment(ctx context.Context, d *department.Department) error {
	tag, err := s.pool.Exec(ctx, `UPDATE departments SET name = $1, color = $2 WHERE id = $3`, d.Name, d.Color, d.ID)
	if err != nil {
		logger.Error("Repository: Failed to update department", err, zap.String("department_id", d.ID))
		return fmt.Errorf("update department: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update department %s: %w", d.ID, repo.ErrNotFound)
	}
	return nil
}

func (s *Storage) DeleteDepartment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Failed to delete department", err, zap.String("department_id", id))
		return fmt.Errorf("delete department: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete department %s: %w", id, repo.ErrNotFound)
	}
	return nil
}
