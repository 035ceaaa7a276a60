package models

// Permission holds the visibility settings of a single entity. Each project,
// branch and post owns exactly one row.
type Permission struct {
	ID               uint                    `gorm:"primaryKey" json:"-"`
	EntityType       EntityType              `gorm:"size:16;not null;uniqueIndex:idx_permissions_entity" json:"-"`
	EntityID         uint                    `gorm:"not null;uniqueIndex:idx_permissions_entity" json:"-"`
	Private          bool                    `gorm:"not null;default:false" json:"private"`
	AllowCollaborate bool                    `gorm:"not null;default:false" json:"allow_collaborate"`
	AllowShare       bool                    `gorm:"not null" json:"allow_share"`
	AllowBranch      bool                    `gorm:"not null" json:"allow_branch"`
	AllowedUsers     []PermissionAllowedUser `gorm:"constraint:OnDelete:CASCADE" json:"allowed_users,omitempty"`
}

// PermissionAllowedUser grants one user access to a private entity.
type PermissionAllowedUser struct {
	PermissionID uint `gorm:"primaryKey;autoIncrement:false" json:"-"`
	UserID       uint `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
}
