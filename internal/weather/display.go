package weather

import (
	"fmt"
	"time"

	"github.com/i474232898/weather-lookup/internal/common"
)

// Display layouts.
const (
	ObservedAtLayout = "Monday, Jan 2, 3:04 PM"
	SavedAtLayout    = "Jan 2, 3:04 PM"
)

const (
	iconURLFormat   = "https://openweathermap.org/img/wn/%s@2x.png"
	unknownLocation = "Unknown"
)

// View is the rendered form of a Record.
type View struct {
	Location    string    `json:"location"`
	ObservedAt  string    `json:"observedAt"`
	Temperature string    `json:"temperature"`
	Description string    `json:"description"`
	Humidity    string    `json:"humidity"`
	Clouds      string    `json:"clouds"`
	IconURL     string    `json:"iconUrl,omitempty"`
	Animation   Animation `json:"animation,omitempty"`

	Record Record `json:"record"`
}

// NewView renders r for display. A record without conditions renders with
// an empty description and no icon.
func NewView(r Record) View {
	v := View{
		Location:    r.LocationName,
		ObservedAt:  FormatObservedAt(r.ObservedAt, r.UTCOffsetSeconds),
		Temperature: FormatCelsius(r.TempMinCelsius()),
		Humidity:    fmt.Sprintf("%d%%", r.HumidityPercent),
		Clouds:      fmt.Sprintf("%d%%", r.CloudCoverPercent),
		Record:      r,
	}
	if v.Location == "" {
		v.Location = unknownLocation
	}
	if c, ok := r.Primary(); ok {
		v.Description = common.Capitalize(c.Description)
		v.IconURL = IconURL(c.Icon)
		v.Animation = AnimationFor(c.Icon)
	}
	return v
}

// FormatCelsius renders a Celsius temperature with one decimal, e.g. "6.9°C".
func FormatCelsius(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}

// FormatObservedAt renders t in the fixed zone offsetSeconds east of UTC.
func FormatObservedAt(t time.Time, offsetSeconds int) string {
	return t.In(time.FixedZone("", offsetSeconds)).Format(ObservedAtLayout)
}

// IconURL returns the provider image for an icon code.
func IconURL(icon string) string {
	if icon == "" {
		return ""
	}
	return fmt.Sprintf(iconURLFormat, icon)
}
