package models

import (
	"time"
)

// Event is a user-created post with a date, location and uploaded media.
type Event struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Description    string    `gorm:"type:text;not null" json:"description"`
	Date           time.Time `gorm:"not null;index" json:"date"`
	Location       string    `gorm:"size:255;not null" json:"location"`
	CreatedBy      uint      `gorm:"not null;index" json:"createdBy"`
	Creator        *User     `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	CoverImage     string    `gorm:"size:500;not null" json:"coverImage"`
	CoverThumbnail string    `gorm:"size:500" json:"coverThumbnail,omitempty"`
	VideoFile      string    `gorm:"size:500" json:"videoFile,omitempty"`
	Version        int       `gorm:"not null;default:1" json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StoredFiles returns the upload paths owned by the event.
func (e *Event) StoredFiles() []string {
	var files []string
	for _, p := range []string{e.CoverImage, e.CoverThumbnail, e.VideoFile} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}
