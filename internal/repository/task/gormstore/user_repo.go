package gormstore

import (
	"context"
	"fmt"

	"taskwise/internal/models/user"

	"gorm.io/gorm/clause"
)

func (s *Storage) GetUser(ctx context.Context, id string) (*user.AppUser, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, mapError(err))
	}
	return row.toUser(), nil
}

func (s *Storage) ListUsers(ctx context.Context, department string) ([]*user.AppUser, error) {
	q := s.db.WithContext(ctx).Model(&userRow{})
	if department != "" {
		q = q.Where("department = ?", department)
	}
	var rows []userRow
	if err := q.Order("email").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", mapError(err))
	}
	users := make([]*user.AppUser, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toUser())
	}
	return users, nil
}

func (s *Storage) SaveUser(ctx context.Context, u *user.AppUser) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "photo_url", "role", "status", "department"}),
	}).Create(toUserRow(u))
	if result.Error != nil {
		return fmt.Errorf("save user %s: %w", u.ID, mapError(result.Error))
	}
	return nil
}
