package analytics

import (
	"strings"

	"github.com/qelal/qelal/internal/model"
)

// ClassifyDevice derives the device class from a raw user-agent string.
// Matching is case-insensitive substring: "mobile" wins over
// "tablet"/"ipad"; anything else is Desktop.
func ClassifyDevice(userAgent string) model.DeviceType {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "mobile"):
		return model.DeviceMobile
	case strings.Contains(ua, "tablet"), strings.Contains(ua, "ipad"):
		return model.DeviceTablet
	default:
		return model.DeviceDesktop
	}
}
