package domain

import "time"

// Collaborator roles. Editors may save content and broadcast changes;
// viewers receive presence and changes but cannot write.
const (
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// ValidRole reports whether role is one of the known collaborator roles.
func ValidRole(role string) bool {
	return role == RoleEditor || role == RoleViewer
}

// Collaborator grants a user access to a project they do not own.
type Collaborator struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"user_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CanEdit reports whether this collaborator may mutate project content.
func (c *Collaborator) CanEdit() bool {
	return c.Role == RoleEditor
}
