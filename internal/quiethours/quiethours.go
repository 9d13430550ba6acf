// Package quiethours decides whether out-of-band delivery is currently
// suppressed. Quiet hours gate external channels only; in-app notifications
// and toasts are never affected.
package quiethours

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
)

// IsInQuietHours reports whether now falls inside the settings' quiet
// window. The window is half-open [start, end): a send at the exact end
// minute is not suppressed. If either boundary is unset or unparsable,
// quiet hours are disabled.
func IsInQuietHours(settings models.AppSettings, now time.Time) bool {
	if settings.QuietHoursStart == "" || settings.QuietHoursEnd == "" {
		return false
	}

	start, err := parseMinutes(settings.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := parseMinutes(settings.QuietHoursEnd)
	if err != nil {
		return false
	}

	current := now.Hour()*60 + now.Minute()

	if start <= end {
		return current >= start && current < end
	}

	// Window spans midnight, e.g. 22:00-08:00.
	return current >= start || current < end
}

// parseMinutes converts an "HH:MM" local time to minutes since midnight.
func parseMinutes(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", hhmm)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", hhmm, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", hhmm, err)
	}

	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q out of range", hhmm)
	}

	return hours*60 + minutes, nil
}
