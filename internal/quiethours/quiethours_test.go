package quiethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/twitchyvr/MycoLab-sub010/internal/models"
)

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 15, hour, minute, 0, 0, time.Local)
}

func TestMidnightSpanningWindow(t *testing.T) {
	settings := models.AppSettings{QuietHoursStart: "22:00", QuietHoursEnd: "08:00"}

	assert.True(t, IsInQuietHours(settings, at(23, 30)))
	assert.True(t, IsInQuietHours(settings, at(7, 59)))
	assert.True(t, IsInQuietHours(settings, at(22, 0)))
	// The window is half-open: the exact end minute is not quiet.
	assert.False(t, IsInQuietHours(settings, at(8, 0)))
	assert.False(t, IsInQuietHours(settings, at(12, 0)))
	assert.False(t, IsInQuietHours(settings, at(21, 59)))
}

func TestSameDayWindow(t *testing.T) {
	settings := models.AppSettings{QuietHoursStart: "13:00", QuietHoursEnd: "15:00"}

	assert.True(t, IsInQuietHours(settings, at(13, 0)))
	assert.True(t, IsInQuietHours(settings, at(14, 59)))
	assert.False(t, IsInQuietHours(settings, at(15, 0)))
	assert.False(t, IsInQuietHours(settings, at(12, 59)))
}

func TestUnsetBoundariesDisableQuietHours(t *testing.T) {
	assert.False(t, IsInQuietHours(models.AppSettings{}, at(3, 0)))
	assert.False(t, IsInQuietHours(models.AppSettings{QuietHoursStart: "22:00"}, at(23, 0)))
	assert.False(t, IsInQuietHours(models.AppSettings{QuietHoursEnd: "08:00"}, at(3, 0)))
}

func TestUnparsableBoundaryDisablesQuietHours(t *testing.T) {
	settings := models.AppSettings{QuietHoursStart: "ten pm", QuietHoursEnd: "08:00"}
	assert.False(t, IsInQuietHours(settings, at(23, 0)))

	settings = models.AppSettings{QuietHoursStart: "25:00", QuietHoursEnd: "08:00"}
	assert.False(t, IsInQuietHours(settings, at(23, 0)))
}
