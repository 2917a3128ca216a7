package dto

import (
	"github.com/google/uuid"
	"github.com/hugh/salespulse/internal/hub"
)

type CreateTeamUpdateRequest struct {
	Title        string  `json:"title" validate:"required,max=255"`
	Content      string  `json:"content" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	Section      *string `json:"section" validate:"omitempty,max=128"`
	FileURL      *string `json:"file_url" validate:"omitempty,url"`
	ExternalLink *string `json:"external_link" validate:"omitempty,url"`
}

func (r CreateTeamUpdateRequest) Validate() map[string]string {
	return check(r)
}

func (r CreateTeamUpdateRequest) Input() hub.CreateInput {
	return hub.CreateInput{
		Title:        r.Title,
		Content:      r.Content,
		Category:     r.Category,
		Section:      r.Section,
		FileURL:      r.FileURL,
		ExternalLink: r.ExternalLink,
	}
}

type UpdateTeamUpdateRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content      *string `json:"content"`
	Category     *string `json:"category"`
	Section      *string `json:"section" validate:"omitempty,max=128"`
	FileURL      *string `json:"file_url" validate:"omitempty,url"`
	ExternalLink *string `json:"external_link" validate:"omitempty,url"`
}

func (r UpdateTeamUpdateRequest) Validate() map[string]string {
	return check(r)
}

func (r UpdateTeamUpdateRequest) Input() hub.UpdateInput {
	return hub.UpdateInput{
		Title:        r.Title,
		Content:      r.Content,
		Category:     r.Category,
		Section:      r.Section,
		FileURL:      r.FileURL,
		ExternalLink: r.ExternalLink,
	}
}

type BulkTeamUpdateRequest struct {
	IDs      []uuid.UUID `json:"ids" validate:"required,min=1,max=200"`
	Category *string     `json:"category"`
	Section  *string     `json:"section" validate:"omitempty,max=128"`
}

func (r BulkTeamUpdateRequest) Validate() map[string]string {
	return check(r)
}

type BulkUpdateResponse struct {
	Updated int64 `json:"updated"`
}

type UploadRequest struct {
	FileName    string `json:"file_name" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required,max=127"`
}

func (r UploadRequest) Validate() map[string]string {
	return check(r)
}
