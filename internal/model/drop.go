// Package model defines domain entities for the application.
package model

import "time"

// DropVariant discriminates the two kinds of drops sharing the slug namespace.
type DropVariant string

const (
	VariantLink   DropVariant = "url"
	VariantBundle DropVariant = "bundle"
)

// IsValid checks if the variant is one of the known kinds.
func (v DropVariant) IsValid() bool {
	return v == VariantLink || v == VariantBundle
}

// AccessLevel governs anonymous access to a bundle.
type AccessLevel string

const (
	AccessRestricted AccessLevel = "restricted"
	AccessView       AccessLevel = "view"
	AccessEdit       AccessLevel = "edit"
)

// IsValid checks if the access level is one of the known values.
func (a AccessLevel) IsValid() bool {
	return a == AccessRestricted || a == AccessView || a == AccessEdit
}

// BundleItem is a single labeled link inside a bundle.
type BundleItem struct {
	Label     string `json:"label"`
	URL       string `json:"url"`
	Spotlight bool   `json:"is_spotlight,omitempty"`
}

// BundleStyle holds the theming fields of a bundle page.
type BundleStyle struct {
	ThemeColor   string `json:"theme_color"`
	BgColor      string `json:"bg_color"`
	TextColor    string `json:"text_color"`
	TitleColor   string `json:"title_color"`
	CardColor    string `json:"card_color"`
	BgImage      string `json:"bg_image,omitempty"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// DefaultBundleStyle returns the stock studio theme.
func DefaultBundleStyle() BundleStyle {
	return BundleStyle{
		ThemeColor: "#00f2ff",
		BgColor:    "#0a0a0a",
		TextColor:  "#888888",
		TitleColor: "#ffffff",
		CardColor:  "rgba(255,255,255,0.05)",
	}
}

// Drop is the tagged union over the two slug-addressable entities.
// Variant selects which payload fields are meaningful: LongURL for
// VariantLink; Title/Description/Items/Style/AccessLevel/tokens for
// VariantBundle. The shared fields (cap, expiry, password, meta, cloak)
// apply to both.
type Drop struct {
	Variant DropVariant `json:"type"`
	ID      int64       `json:"-"`
	Slug    string      `json:"slug"`
	OwnerID *int64      `json:"user_id,omitempty"`

	Clicks          int64      `json:"clicks"`
	MaxClicks       *int64     `json:"max_clicks,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	PasswordHash    string     `json:"-"`
	MetaTitle       string     `json:"meta_title,omitempty"`
	MetaDescription string     `json:"meta_description,omitempty"`
	Cloaked         bool       `json:"is_cloaked"`
	CreatedAt       time.Time  `json:"created_at"`

	// SingleLink payload
	LongURL string `json:"long_url,omitempty"`

	// Bundle payload
	Title        string       `json:"title,omitempty"`
	Description  string       `json:"description,omitempty"`
	Items        []BundleItem `json:"items,omitempty"`
	Style        BundleStyle  `json:"-"`
	AccessLevel  AccessLevel  `json:"access_level,omitempty"`
	ManagerToken string       `json:"-"`
	AnalystToken string       `json:"-"`
}

// IsBundle reports whether the drop is a bundle.
func (d *Drop) IsBundle() bool {
	return d.Variant == VariantBundle
}

// HasPassword reports whether the drop is password protected.
func (d *Drop) HasPassword() bool {
	return d.PasswordHash != ""
}

// HasMeta reports whether the drop carries SEO meta fields.
func (d *Drop) HasMeta() bool {
	return d.MetaTitle != "" || d.MetaDescription != ""
}

// IsExpiredAt reports whether the drop has passed its expiry or click cap
// as of the given instant.
func (d *Drop) IsExpiredAt(now time.Time) bool {
	if d.ExpiresAt != nil && d.ExpiresAt.Before(now) {
		return true
	}
	return d.IsCapped()
}

// IsCapped reports whether the click cap has been reached.
func (d *Drop) IsCapped() bool {
	return d.MaxClicks != nil && d.Clicks >= *d.MaxClicks
}

// OwnedBy reports whether the drop is owned by the given user.
func (d *Drop) OwnedBy(userID int64) bool {
	return d.OwnerID != nil && *d.OwnerID == userID
}
