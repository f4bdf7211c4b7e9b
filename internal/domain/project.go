package domain

import (
	"time"
)

// Content is the structured document a project stores: the markup and
// styling produced by the editing surface, plus optional script.
type Content struct {
	HTML string `json:"html"`
	CSS  string `json:"css"`
	JS   string `json:"js,omitempty"`
}

// IsZero reports whether no part of the content has been set.
func (c Content) IsZero() bool {
	return c.HTML == "" && c.CSS == "" && c.JS == ""
}

// Project is a user-owned website document.
//
// Version starts at 1 and increments by exactly one each time the stored
// content is replaced by structurally different content. Metadata updates
// (name, description, visibility) never touch Version.
type Project struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	PublicID     string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	OwnerID      uint      `gorm:"index;not null" json:"owner_id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Description  string    `gorm:"type:text" json:"description"`
	ContentHTML  string    `gorm:"type:longtext" json:"-"`
	ContentCSS   string    `gorm:"type:longtext" json:"-"`
	ContentJS    string    `gorm:"type:longtext" json:"-"`
	Version      int       `gorm:"not null;default:1" json:"version"`
	IsPublic     bool      `gorm:"not null;default:false" json:"is_public"`
	PublishedURL string    `gorm:"size:512" json:"published_url,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Content Content `gorm:"-" json:"content"`
}

// SyncContentColumns copies the embedded Content struct into the flat
// columns gorm persists. Call before saving.
func (p *Project) SyncContentColumns() {
	p.ContentHTML = p.Content.HTML
	p.ContentCSS = p.Content.CSS
	p.ContentJS = p.Content.JS
}

// LoadContent populates the embedded Content struct from the flat
// columns. Call after loading from the database.
func (p *Project) LoadContent() {
	p.Content = Content{HTML: p.ContentHTML, CSS: p.ContentCSS, JS: p.ContentJS}
}

// Snapshot builds an immutable version record holding the project's
// current (pre-update) content.
func (p *Project) Snapshot() *ProjectVersion {
	return &ProjectVersion{
		ProjectID: p.ID,
		HTML:      p.ContentHTML,
		CSS:       p.ContentCSS,
		JS:        p.ContentJS,
		Version:   p.Version,
	}
}
