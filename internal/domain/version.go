package domain

import "time"

// ProjectVersion is an immutable snapshot of a project's content, taken
// immediately before the content was overwritten. Version records are
// never mutated after creation and are deleted only when the owning
// project is deleted.
type ProjectVersion struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index;not null" json:"project_id"`
	HTML      string    `gorm:"type:longtext" json:"-"`
	CSS       string    `gorm:"type:longtext" json:"-"`
	JS        string    `gorm:"type:longtext" json:"-"`
	Version   int       `gorm:"index;not null" json:"version"`
	CreatedAt time.Time `gorm:"index;autoCreateTime" json:"created_at"`
}

// Content returns the snapshot body as a Content value.
func (v *ProjectVersion) Content() Content {
	return Content{HTML: v.HTML, CSS: v.CSS, JS: v.JS}
}
