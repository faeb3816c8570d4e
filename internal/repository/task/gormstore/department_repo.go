package gormstore

import (
	"context"
	"fmt"

	"taskwise/internal/models/department"
	repo "taskwise/internal/repository"
)

func (s *Storage) ListDepartments(ctx context.Context) ([]*department.Department, error) {
	var rows []departmentRow
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", mapError(err))
	}
	deps := make([]*department.Department, 0, len(rows))
	for i := range rows {
		deps = append(deps, rows[i].toDepartment())
	}
	return deps, nil
}

func (s *Storage) GetDepartment(ctx context.Context, id string) (*department.Department, error) {
	var row departmentRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get department %s: %w", id, mapError(err))
	}
	return row.toDepartment(), nil
}

func (s *Storage) CreateDepartment(ctx context.Context, d *department.Department) error {
	if err := s.db.WithContext(ctx).Create(toDepartmentRow(d)).Error; err != nil {
		return fmt.Errorf("create department: %w", mapError(err))
	}
	return nil
}

func (s *Storage) UpdateDepartment(ctx context.Context, d *department.Department) error {
	var existing departmentRow
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", d.ID).Error; err != nil {
		return fmt.Errorf("update department %s: %w", d.ID, mapError(err))
	}
	row := toDepartmentRow(d)
	err := s.db.WithContext(ctx).Model(&existing).
		Updates(map[string]interface{}{"name": row.Name, "name_key": row.NameKey, "color": row.Color}).Error
	if err != nil {
		return fmt.Errorf("update department: %w", mapError(err))
	}
	return nil
}

func (s *Storage) DeleteDepartment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&departmentRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete department: %w", mapError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete department %s: %w", id, repo.ErrNotFound)
	}
	return nil
}
