// Package redirect decides, for one inbound slug request, which of the
// possible outcomes applies and renders the HTML interstitial pages.
package redirect

import (
	"strings"
	"time"

	"github.com/qelal/qelal/internal/model"
)

// Outcome is the single result of evaluating a slug request.
type Outcome string

const (
	OutcomeNotFound    Outcome = "not_found"
	OutcomeExpired     Outcome = "expired"
	OutcomeCloak       Outcome = "cloak_page"
	OutcomeUnlock      Outcome = "unlock_required"
	OutcomeMetaPreview Outcome = "meta_preview"
	OutcomeRedirect    Outcome = "plain_redirect"
)

// Decision is the evaluated outcome plus the side effects it implies.
type Decision struct {
	Outcome Outcome
	// RecordClick is true only when the request resolves to the target;
	// unlock prompts, cloak pages and expired drops never count.
	RecordClick bool
	// NoReferrer forces a no-referrer policy header on the response.
	// Set for every outcome of a cloaked drop.
	NoReferrer bool
}

// crawlerSignatures are substring-matched (lowercased) against the
// user agent to detect automated preview fetchers.
var crawlerSignatures = []string{
	"bot",
	"crawler",
	"spider",
	"whatsapp",
	"telegram",
	"facebook",
	"slack",
	"discord",
}

// IsCrawler reports whether the user agent looks like an automated
// crawler or link-preview fetcher.
func IsCrawler(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, sig := range crawlerSignatures {
		if strings.Contains(ua, sig) {
			return true
		}
	}
	return false
}

// Decide evaluates the redirect rules in strict order, first match wins:
//
//  1. missing drop        -> NotFound
//  2. past expiry or cap  -> Expired
//  3. cloaked + crawler   -> CloakPage
//  4. password set        -> UnlockRequired
//  5. meta fields present -> MetaPreview, else PlainRedirect
//
// Only step 5 records a click.
func Decide(drop *model.Drop, userAgent string, now time.Time) Decision {
	if drop == nil {
		return Decision{Outcome: OutcomeNotFound}
	}

	d := Decision{NoReferrer: drop.Cloaked}

	switch {
	case drop.IsExpiredAt(now):
		d.Outcome = OutcomeExpired
	case drop.Cloaked && IsCrawler(userAgent):
		d.Outcome = OutcomeCloak
	case drop.HasPassword():
		d.Outcome = OutcomeUnlock
	case drop.HasMeta():
		d.Outcome = OutcomeMetaPreview
		d.RecordClick = true
	default:
		d.Outcome = OutcomeRedirect
		d.RecordClick = true
	}

	return d
}

// Target returns the true destination of a drop: the bundle viewer page
// for bundles, the stored long URL for single links.
func Target(drop *model.Drop, frontendURL string) string {
	if drop.IsBundle() {
		return strings.TrimSuffix(frontendURL, "/") + "/bundle/" + drop.Slug
	}
	return drop.LongURL
}

// UnlockURL returns the frontend unlock prompt for a drop.
func UnlockURL(drop *model.Drop, frontendURL string) string {
	return strings.TrimSuffix(frontendURL, "/") + "/unlock/" + drop.Slug
}

// ExpiredURL returns the frontend expired page.
func ExpiredURL(frontendURL string) string {
	return strings.TrimSuffix(frontendURL, "/") + "/expired"
}
