package models

import (
	"time"
)

type Organization struct {
	ID        int64     `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Image struct {
	ID             int64     `json:"id" db:"id"`
	File           string    `json:"file" db:"file"`
	Title          *string   `json:"title" db:"title"`
	Description    *string   `json:"description" db:"description"`
	AltText        *string   `json:"alt_text" db:"alt_text"`
	OrganizationID int64     `json:"organization" db:"organization_id"`
	CreatorID      *string   `json:"creator" db:"creator_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

type ImageRelation struct {
	ID                int64   `json:"id" db:"id"`
	ImageID           int64   `json:"image_id" db:"image_id"`
	TargetType        string  `json:"content_type" db:"target_type"`
	TargetID          int64   `json:"object_id" db:"target_id"`
	IsCover           bool    `json:"is_cover" db:"is_cover"`
	Order             *int    `json:"order" db:"sort_order"`
	CustomTitle       *string `json:"custom_title" db:"custom_title"`
	CustomDescription *string `json:"custom_description" db:"custom_description"`
	CustomAltText     *string `json:"custom_alt_text" db:"custom_alt_text"`
}

// RelationWithImage is a relation row joined with its image columns.
type RelationWithImage struct {
	ImageRelation
	Image Image `db:"image"`
}

// Target identifies any entity images can be attached to.
type Target struct {
	Type           string
	ID             int64
	OrganizationID int64
}

// Variants maps "original", "thumb", "sm", "md" and "lg" to URLs.
type Variants map[string]string

type ImageOut struct {
	Image
	URL      string   `json:"url"`
	Variants Variants `json:"variants"`
}

type RelationOut struct {
	ID                int64    `json:"id"`
	Image             ImageOut `json:"image"`
	ContentType       string   `json:"content_type"`
	ObjectID          int64    `json:"object_id"`
	IsCover           bool     `json:"is_cover"`
	Order             *int     `json:"order"`
	CustomTitle       *string  `json:"custom_title"`
	CustomDescription *string  `json:"custom_description"`
	CustomAltText     *string  `json:"custom_alt_text"`
}

type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type BulkUploadResult struct {
	ID     *int64 `json:"id"`
	File   string `json:"file,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	BulkStatusSuccess = "success"
	BulkStatusError   = "error"
)

type ImageMetadataUpdate struct {
	Title       *string `json:"title" validate:"omitempty,max=120"`
	Description *string `json:"description"`
	AltText     *string `json:"alt_text" validate:"omitempty,max=120"`
}

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}
