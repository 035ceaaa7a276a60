package models

import (
	"fmt"
	"strings"
	"time"
)

// EntityType names one of the three content tables.
type EntityType string

const (
	EntityProject EntityType = "project"
	EntityBranch  EntityType = "branch"
	EntityPost    EntityType = "post"
)

// EntityTypes lists every content type in a stable order.
var EntityTypes = []EntityType{EntityProject, EntityBranch, EntityPost}

var entityTypeAliases = map[string]EntityType{
	"project":  EntityProject,
	"projects": EntityProject,
	"branch":   EntityBranch,
	"branches": EntityBranch,
	"post":     EntityPost,
	"posts":    EntityPost,
}

// ParseEntityType accepts singular or plural forms ("post", "posts").
func ParseEntityType(raw string) (EntityType, error) {
	if t, ok := entityTypeAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return t, nil
	}
	return "", NewValidationError(fmt.Sprintf("Invalid entity type %q", raw))
}

// Table returns the SQL table backing the entity type.
func (t EntityType) Table() string {
	switch t {
	case EntityProject:
		return "projects"
	case EntityBranch:
		return "branches"
	case EntityPost:
		return "posts"
	}
	return ""
}

// EntityRef addresses a single project, branch or post.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   uint       `json:"id"`
}

func (r EntityRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Stats are engagement counters computed at query time.
type Stats struct {
	// PopularityCount counts lifetime LIKE, SHARE and BOOKMARK interactions.
	PopularityCount int64 `gorm:"->;-:migration" json:"popularity"`
	// ActivityCount counts the same interactions inside the trending window.
	ActivityCount int64 `gorm:"->;-:migration" json:"activity"`
	// TrendingScore is the weighted score computed alongside the counters.
	TrendingScore float64 `gorm:"->;-:migration" json:"trending_score"`

	TrendingActivity   bool              `gorm:"-" json:"trending_activity"`
	TrendingPopularity bool              `gorm:"-" json:"trending_popularity"`
	ViewerInteractions []InteractionType `gorm:"-" json:"viewer_interactions,omitempty"`
}

// Entity is implemented by Project, Branch and Post.
type Entity interface {
	Ref() EntityRef
	OwnerID() uint
	Updated() time.Time
	Access() Access
	EngagementStats() *Stats
}

// Access is the visibility-relevant projection of an entity.
type Access struct {
	AuthorID     uint
	HasPerms     bool
	Private      bool
	AllowedUsers []uint
}

func accessOf(authorID uint, p *Permission) Access {
	a := Access{AuthorID: authorID}
	if p == nil || p.ID == 0 {
		return a
	}
	a.HasPerms = true
	a.Private = p.Private
	for _, u := range p.AllowedUsers {
		a.AllowedUsers = append(a.AllowedUsers, u.UserID)
	}
	return a
}

// Project is the root of a content tree.
type Project struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	AuthorID    uint        `gorm:"not null;index" json:"author_id"`
	Author      *User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Permissions *Permission `gorm:"polymorphic:Entity;polymorphicValue:project" json:"permissions,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `gorm:"index" json:"updated_at"`
	Stats
}

// Branch belongs to a project.
type Branch struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	ProjectID   uint        `gorm:"not null;index" json:"project_id"`
	AuthorID    uint        `gorm:"not null;index" json:"author_id"`
	Author      *User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Permissions *Permission `gorm:"polymorphic:Entity;polymorphicValue:branch" json:"permissions,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `gorm:"index" json:"updated_at"`
	Stats
}

// Post belongs to a branch.
type Post struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	BranchID    uint        `gorm:"not null;index" json:"branch_id"`
	AuthorID    uint        `gorm:"not null;index" json:"author_id"`
	Author      *User       `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	Permissions *Permission `gorm:"polymorphic:Entity;polymorphicValue:post" json:"permissions,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `gorm:"index" json:"updated_at"`
	Stats
}

func (p *Project) Ref() EntityRef          { return EntityRef{Type: EntityProject, ID: p.ID} }
func (p *Project) OwnerID() uint           { return p.AuthorID }
func (p *Project) Updated() time.Time      { return p.UpdatedAt }
func (p *Project) Access() Access          { return accessOf(p.AuthorID, p.Permissions) }
func (p *Project) EngagementStats() *Stats { return &p.Stats }

func (b *Branch) Ref() EntityRef          { return EntityRef{Type: EntityBranch, ID: b.ID} }
func (b *Branch) OwnerID() uint           { return b.AuthorID }
func (b *Branch) Updated() time.Time      { return b.UpdatedAt }
func (b *Branch) Access() Access          { return accessOf(b.AuthorID, b.Permissions) }
func (b *Branch) EngagementStats() *Stats { return &b.Stats }

func (p *Post) Ref() EntityRef          { return EntityRef{Type: EntityPost, ID: p.ID} }
func (p *Post) OwnerID() uint           { return p.AuthorID }
func (p *Post) Updated() time.Time      { return p.UpdatedAt }
func (p *Post) Access() Access          { return accessOf(p.AuthorID, p.Permissions) }
func (p *Post) EngagementStats() *Stats { return &p.Stats }

// NewEntity returns an empty model for t, ready to be scanned into.
func NewEntity(t EntityType) (Entity, error) {
	switch t {
	case EntityProject:
		return &Project{}, nil
	case EntityBranch:
		return &Branch{}, nil
	case EntityPost:
		return &Post{}, nil
	}
	return nil, NewValidationError(fmt.Sprintf("Invalid entity type %q", t))
}
