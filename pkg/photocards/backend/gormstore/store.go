// Package gormstore implements backend.Store on top of GORM.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/models"
	"gorm.io/gorm"
)

// Ensure Store implements backend.Store
var _ backend.Store = (*Store)(nil)

// updatable lists the collection columns the UI is allowed to write
var updatable = map[string]bool{
	"image_url":   true,
	"description": true,
	"status":      true,
	"member_id":   true,
	"is_favorite": true,
}

// Store is a GORM-backed backend.Store
type Store struct {
	db *gorm.DB
}

// New creates a new store over db
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListGroups returns all groups with their members
func (s *Store) ListGroups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB { return tx.Order("members.id ASC") }).
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// ListCards returns collection rows matching q with member and group joined
func (s *Store) ListCards(ctx context.Context, q backend.CardQuery) ([]models.CollectionItem, error) {
	query := s.db.WithContext(ctx).Preload("Member.Group")

	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.MemberID != nil {
		query = query.Where("member_id = ?", *q.MemberID)
	}

	switch q.Order {
	case backend.OrderImagesFirst:
		query = query.
			Order("CASE WHEN image_url IS NULL OR image_url = '' THEN 1 ELSE 0 END").
			Order("created_at ASC").
			Order("id ASC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}

	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var items []models.CollectionItem
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	return items, nil
}

// FindMemberID looks up a member by name within a named group
func (s *Store) FindMemberID(ctx context.Context, groupName, memberName string) (uint, bool, error) {
	var member models.Member
	err := s.db.WithContext(ctx).
		Joins("JOIN groups ON groups.id = members.group_id").
		Where("groups.name = ? AND members.name = ?", groupName, memberName).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find member: %w", err)
	}
	return member.ID, true, nil
}

// UpdateCard applies a partial update to one collection row
func (s *Store) UpdateCard(ctx context.Context, id uint, fields backend.Fields) error {
	if len(fields) == 0 {
		return nil
	}
	for column := range fields {
		if !updatable[column] {
			return fmt.Errorf("column %q is not updatable", column)
		}
	}

	result := s.db.WithContext(ctx).
		Model(&models.CollectionItem{}).
		Where("id = ?", id).
		Updates(map[string]any(fields))
	if result.Error != nil {
		return fmt.Errorf("failed to update card %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return backend.ErrNotFound
	}
	return nil
}
