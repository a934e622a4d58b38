package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Course struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	Price       int64        `gorm:"not null" json:"price"`
	Currency    string       `gorm:"not null" json:"currency"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`

	Lectures []Lecture `gorm:"-" json:"lectures,omitempty"`
}

func (Course) TableName() string { return "courses" }

type Lecture struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CourseID      snowflake.ID `gorm:"not null;index" json:"course_id"`
	Title         string       `gorm:"not null" json:"title"`
	VideoURL      string       `json:"video_url,omitempty"`
	Position      int          `json:"position"`
	IsPreviewOpen bool         `gorm:"not null" json:"is_preview_open"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (Lecture) TableName() string { return "lectures" }

// Summary is the course shape returned alongside orders and purchase
// listings; it never carries lecture content.
type Summary struct {
	ID          snowflake.ID `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
}

func (c Course) Summary() Summary {
	return Summary{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Thumbnail:   c.Thumbnail,
	}
}

var (
	ErrNotFound  = errors.New("course_not_found")
	ErrInvalidID = errors.New("invalid_course_id")
)
