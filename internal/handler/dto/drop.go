// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"strings"
	"time"

	"github.com/qelal/qelal/internal/authz"
	"github.com/qelal/qelal/internal/model"
)

// CreateLinkRequest represents the request body for creating a short link.
type CreateLinkRequest struct {
	LongURL         string     `json:"long_url"`
	Slug            string     `json:"slug,omitempty"`
	MaxClicks       *int64     `json:"max_clicks,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Password        string     `json:"password,omitempty"`
	MetaTitle       string     `json:"meta_title,omitempty"`
	MetaDescription string     `json:"meta_description,omitempty"`
	Cloaked         bool       `json:"is_cloaked,omitempty"`
}

// CreateBundleRequest represents the request body for creating a bundle.
type CreateBundleRequest struct {
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	Slug            string             `json:"slug,omitempty"`
	Items           []model.BundleItem `json:"items,omitempty"`
	Style           *model.BundleStyle `json:"style,omitempty"`
	AccessLevel     model.AccessLevel  `json:"access_level,omitempty"`
	MaxClicks       *int64             `json:"max_clicks,omitempty"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
	Password        string             `json:"password,omitempty"`
	MetaTitle       string             `json:"meta_title,omitempty"`
	MetaDescription string             `json:"meta_description,omitempty"`
	Cloaked         bool               `json:"is_cloaked,omitempty"`
}

// UpdateDropRequest represents the request body for patching a drop.
// Absent fields leave the stored value unchanged; the Clear flags reset
// optional fields to empty.
type UpdateDropRequest struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Items       []model.BundleItem `json:"items,omitempty"`
	Style       *model.BundleStyle `json:"style,omitempty"`

	LongURL *string `json:"long_url,omitempty"`

	MetaTitle       *string `json:"meta_title,omitempty"`
	MetaDescription *string `json:"meta_description,omitempty"`

	Slug          *string            `json:"slug,omitempty"`
	MaxClicks     *int64             `json:"max_clicks,omitempty"`
	ClearCap      bool               `json:"clear_max_clicks,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
	ClearExpiry   bool               `json:"clear_expires_at,omitempty"`
	Password      *string            `json:"password,omitempty"`
	ClearPassword bool               `json:"clear_password,omitempty"`
	Cloaked       *bool              `json:"is_cloaked,omitempty"`
	AccessLevel   *model.AccessLevel `json:"access_level,omitempty"`
}

// DropResponse represents a drop in API responses.
type DropResponse struct {
	Variant         string             `json:"type"`
	Slug            string             `json:"slug"`
	ShortURL        string             `json:"short_url"`
	Clicks          int64              `json:"clicks"`
	MaxClicks       *int64             `json:"max_clicks,omitempty"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
	HasPassword     bool               `json:"has_password"`
	MetaTitle       string             `json:"meta_title,omitempty"`
	MetaDescription string             `json:"meta_description,omitempty"`
	Cloaked         bool               `json:"is_cloaked"`
	CreatedAt       time.Time          `json:"created_at"`
	LongURL         string             `json:"long_url,omitempty"`
	Title           string             `json:"title,omitempty"`
	Description     string             `json:"description,omitempty"`
	Items           []model.BundleItem `json:"items,omitempty"`
	Style           *model.BundleStyle `json:"style,omitempty"`
	AccessLevel     string             `json:"access_level,omitempty"`
	Role            string             `json:"role,omitempty"`
	CanEditContent  bool               `json:"can_edit_content,omitempty"`
	ManagerToken    string             `json:"manager_token,omitempty"`
	AnalystToken    string             `json:"analyst_token,omitempty"`
}

// DropListResponse represents a dashboard listing of drops.
type DropListResponse struct {
	Data []DropResponse `json:"data"`
}

// UnlockRequest represents the request body for unlocking a
// password-protected drop.
type UnlockRequest struct {
	Password string `json:"password"`
}

// UnlockResponse reveals the target after a successful unlock.
type UnlockResponse struct {
	TargetURL string `json:"target_url"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToDropResponse converts a Drop model to DropResponse DTO. The join
// tokens are included only when the decision grants management rights.
func ToDropResponse(drop *model.Drop, baseURL string, decision authz.Decision) *DropResponse {
	resp := &DropResponse{
		Variant:         string(drop.Variant),
		Slug:            drop.Slug,
		ShortURL:        strings.TrimSuffix(baseURL, "/") + "/" + drop.Slug,
		Clicks:          drop.Clicks,
		MaxClicks:       drop.MaxClicks,
		ExpiresAt:       drop.ExpiresAt,
		HasPassword:     drop.HasPassword(),
		MetaTitle:       drop.MetaTitle,
		MetaDescription: drop.MetaDescription,
		Cloaked:         drop.Cloaked,
		CreatedAt:       drop.CreatedAt,
		LongURL:         drop.LongURL,
		Title:           drop.Title,
		Description:     drop.Description,
		Items:           drop.Items,
		Role:            string(decision.Role),
		CanEditContent:  decision.CanEditContent,
	}

	if drop.IsBundle() {
		style := drop.Style
		resp.Style = &style
		resp.AccessLevel = string(drop.AccessLevel)
		if decision.CanManage() {
			resp.ManagerToken = drop.ManagerToken
			resp.AnalystToken = drop.AnalystToken
		}
	}

	return resp
}

// ToDropListResponse converts a slice of Drop models to DropListResponse.
// Listings never expose join tokens.
func ToDropListResponse(drops []*model.Drop, baseURL string) *DropListResponse {
	responses := make([]DropResponse, len(drops))
	for i, drop := range drops {
		responses[i] = *ToDropResponse(drop, baseURL, authz.Decision{})
	}
	return &DropListResponse{Data: responses}
}
