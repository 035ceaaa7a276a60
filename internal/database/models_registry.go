package database

import "canopy/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Project{},
		&models.Branch{},
		&models.Post{},
		&models.Permission{},
		&models.PermissionAllowedUser{},
		&models.Interaction{},
		&models.Follow{},
	}
}
