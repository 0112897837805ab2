package projects

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// ImageRef is embedded in a project; thumbnail_url mirrors original_url.
type ImageRef struct {
	OriginalURL  string `bson:"original_url" json:"original_url" validate:"required"`
	Alt          string `bson:"alt" json:"alt"`
	Width        int    `bson:"width" json:"width" validate:"gte=0"`
	Height       int    `bson:"height" json:"height" validate:"gte=0"`
	ThumbnailURL string `bson:"thumbnail_url" json:"thumbnail_url"`
}

type Project struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Architect    string          `json:"architect"`
	Location     string          `json:"location"`
	Category     string          `json:"category"`
	Area         *float64        `json:"area"`
	ProjectYear  int             `json:"project_year"`
	Photographer *string         `json:"photographer"`
	Details      json.RawMessage `json:"details,omitempty"`
	Images       []ImageRef      `json:"images"`
	Slug         string          `json:"slug"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateRequest struct {
	Title        string          `json:"title" validate:"required"`
	Architect    string          `json:"architect" validate:"required"`
	Location     string          `json:"location" validate:"required"`
	Category     string          `json:"category" validate:"required,category"`
	Area         *float64        `json:"area" validate:"omitempty,gt=0"`
	ProjectYear  int             `json:"project_year" validate:"required,projectyear"`
	Photographer *string         `json:"photographer"`
	Details      json.RawMessage `json:"details"`
	Images       []ImageRef      `json:"images" validate:"omitempty,dive"`
	Slug         string          `json:"slug" validate:"max=200"`
	Status       string          `json:"status" validate:"omitempty,oneof=draft published"`
}

// UpdateRequest carries a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Title        *string         `json:"title"`
	Architect    *string         `json:"architect"`
	Location     *string         `json:"location"`
	Category     *string         `json:"category" validate:"omitempty,category"`
	Area         *float64        `json:"area" validate:"omitempty,gt=0"`
	ProjectYear  *int            `json:"project_year" validate:"omitempty,projectyear"`
	Photographer *string         `json:"photographer"`
	Details      json.RawMessage `json:"details"`
	Images       []ImageRef      `json:"images" validate:"omitempty,dive"`
	Slug         *string         `json:"slug" validate:"omitempty,max=200"`
	Status       *string         `json:"status" validate:"omitempty,oneof=draft published"`
}

// Changes is the normalized column set written by an update.
type Changes struct {
	Title        *string
	Architect    *string
	Location     *string
	Category     *string
	Area         *float64
	ProjectYear  *int
	Photographer *string
	Details      json.RawMessage
	Images       []ImageRef
	Slug         *string
	Status       *string
	UpdatedAt    time.Time
}

type ListFilter struct {
	Category string
	Search   string
	Status   string
	Page     int
	Limit    int
}

// ListQuery is what repositories execute. Zero values mean "no filter".
type ListQuery struct {
	Status      string
	Category    string
	Search      string
	Limit       int
	Offset      int
	ByUpdatedAt bool
	ExcludeRich bool
}

type Page struct {
	Items []Project
	Total int
	Page  int
	Limit int
}

func detailsEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "{}", "[]":
		return true
	}
	return false
}
