package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: Group must be migrated before Member, and Member before CollectionItem
func AllModels() []interface{} {
	return []interface{}{
		&Group{},
		&Member{},
		&CollectionItem{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
