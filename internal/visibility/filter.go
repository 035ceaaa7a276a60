// Package visibility builds the permission predicate that decides which
// projects, branches and posts a viewer may see.
package visibility

import (
	"fmt"
	"slices"

	"canopy/internal/models"

	"gorm.io/gorm"
)

// Kind tags the shape of a Filter.
type Kind int

const (
	// Public matches entities whose permissions are not private.
	Public Kind = iota
	// PrivateAllowed additionally matches private entities the viewer
	// authored or was explicitly allowed on.
	PrivateAllowed
	// OwnerOnly matches only the viewer's own entities.
	OwnerOnly
)

func (k Kind) String() string {
	switch k {
	case Public:
		return "public"
	case PrivateAllowed:
		return "private_allowed"
	case OwnerOnly:
		return "owner_only"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Filter is a visibility predicate. It is rendered into SQL by Scope and
// evaluated in memory by Allows; both implement the same rule.
type Filter struct {
	Kind     Kind
	ViewerID uint
}

// ForViewer returns the predicate for viewer. A nil viewer is anonymous and
// sees only public entities.
func ForViewer(viewer *models.Viewer) Filter {
	if viewer == nil || viewer.ID == 0 {
		return Filter{Kind: Public}
	}
	return Filter{Kind: PrivateAllowed, ViewerID: viewer.ID}
}

// OwnerFilter matches entities authored by viewer.
func OwnerFilter(viewer *models.Viewer) (Filter, error) {
	if viewer == nil || viewer.ID == 0 {
		return Filter{}, models.NewUnauthorizedError("Authentication required")
	}
	return Filter{Kind: OwnerOnly, ViewerID: viewer.ID}, nil
}

// Anonymous reports whether results depend on no viewer at all, which makes
// them safe to share through a cache.
func (f Filter) Anonymous() bool {
	return f.Kind == Public
}

// Clause renders the predicate over the table backing entityType. The
// permissions row is matched through EXISTS so the outer row set is never
// multiplied. Entities without a permissions row count as private.
func (f Filter) Clause(entityType models.EntityType) (string, []interface{}) {
	table := entityType.Table()
	permission := fmt.Sprintf(
		"SELECT 1 FROM permissions perm WHERE perm.entity_type = ? AND perm.entity_id = %s.id", table)

	switch f.Kind {
	case OwnerOnly:
		return fmt.Sprintf("%s.author_id = ?", table), []interface{}{f.ViewerID}
	case PrivateAllowed:
		sql := fmt.Sprintf(
			"(%[1]s.author_id = ? OR EXISTS (%[2]s AND (perm.private = ? OR EXISTS "+
				"(SELECT 1 FROM permission_allowed_users pau WHERE pau.permission_id = perm.id AND pau.user_id = ?))))",
			table, permission)
		return sql, []interface{}{f.ViewerID, string(entityType), false, f.ViewerID}
	default:
		return fmt.Sprintf("EXISTS (%s AND perm.private = ?)", permission),
			[]interface{}{string(entityType), false}
	}
}

// Scope returns a GORM scope restricting a query over entityType's table.
func (f Filter) Scope(entityType models.EntityType) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		sql, args := f.Clause(entityType)
		return db.Where(sql, args...)
	}
}

// Allows evaluates the predicate against an already loaded entity.
func (f Filter) Allows(access models.Access) bool {
	public := access.HasPerms && !access.Private

	switch f.Kind {
	case OwnerOnly:
		return f.ViewerID != 0 && access.AuthorID == f.ViewerID
	case PrivateAllowed:
		if public || access.AuthorID == f.ViewerID {
			return true
		}
		return access.HasPerms && slices.Contains(access.AllowedUsers, f.ViewerID)
	default:
		return public
	}
}
