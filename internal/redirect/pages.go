package redirect

import (
	"html/template"
	"io"

	"github.com/qelal/qelal/internal/model"
)

// PageData feeds the interstitial page templates.
type PageData struct {
	Title       string
	Description string
	PageURL     string // canonical URL of the short link itself
	TargetURL   string // true destination; empty on cloak pages
}

// metaPreviewTemplate renders SEO/social meta tags plus a zero-delay
// client-side redirect to the true target.
var metaPreviewTemplate = template.Must(template.New("meta_preview").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:type" content="website">
<meta property="og:url" content="{{.PageURL}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta http-equiv="refresh" content="0;url={{.TargetURL}}">
</head>
<body style="background:#0a0a0a;color:#fff;font-family:sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;">
<div style="text-align:center;">
<script>window.location.href = {{.TargetURL}};</script>
</div>
</body>
</html>
`))

// cloakTemplate shows crawlers the meta fields and nothing else.
// The true destination never appears in the document.
var cloakTemplate = template.Must(template.New("cloak").Parse(`<!DOCTYPE html>
<html>
<head>
<title>{{.Title}}</title>
<meta name="description" content="{{.Description}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:type" content="website">
<meta property="og:url" content="{{.PageURL}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta name="robots" content="noindex">
</head>
<body style="background:#0a0a0a;color:#fff;font-family:sans-serif;display:flex;align-items:center;justify-content:center;height:100vh;">
<div style="text-align:center;">
<h1>{{.Title}}</h1>
<p>{{.Description}}</p>
</div>
</body>
</html>
`))

// RenderMetaPreview writes the meta-preview interstitial.
func RenderMetaPreview(w io.Writer, data PageData) error {
	return metaPreviewTemplate.Execute(w, data)
}

// RenderCloakPage writes the crawler-safe cloak page.
func RenderCloakPage(w io.Writer, data PageData) error {
	return cloakTemplate.Execute(w, data)
}

// PreviewData assembles the page data for a drop, falling back to
// sensible titles when meta fields are partially set.
func PreviewData(drop *model.Drop, pageURL, targetURL string) PageData {
	title := drop.MetaTitle
	desc := drop.MetaDescription

	if drop.IsBundle() {
		if title == "" {
			title = drop.Title
		}
		if desc == "" {
			desc = drop.Description
		}
	}
	if title == "" {
		title = "qelal link"
	}
	if desc == "" {
		desc = "Shared via qelal"
	}

	return PageData{
		Title:       title,
		Description: desc,
		PageURL:     pageURL,
		TargetURL:   targetURL,
	}
}
