package weather

import (
	"time"
)

// kelvinOffset converts provider Kelvin temperatures to Celsius.
const kelvinOffset = 273.15

// Condition is one entry of the provider's weather conditions list.
// The first entry is the primary condition.
type Condition struct {
	Code        int    `json:"code"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Record is the current weather for one place as reported by the provider.
// It is immutable once decoded; one Record exists per successful fetch.
type Record struct {
	LocationName     string    `json:"locationName"`
	ObservedAt       time.Time `json:"observedAt"` // always UTC
	UTCOffsetSeconds int       `json:"utcOffsetSeconds"`

	TempMinKelvin   float64 `json:"tempMinKelvin"`
	TempMaxKelvin   float64 `json:"tempMaxKelvin"`
	HumidityPercent int     `json:"humidityPercent"`

	// Conditions may be empty; the provider does not guarantee an entry.
	Conditions []Condition `json:"conditions"`

	CloudCoverPercent int `json:"cloudCoverPercent"`
}

// Primary returns the first condition, if any.
func (r Record) Primary() (Condition, bool) {
	if len(r.Conditions) == 0 {
		return Condition{}, false
	}
	return r.Conditions[0], true
}

// TempMinCelsius is the minimum temperature in Celsius. This is the value
// shown to the user and stored in history.
func (r Record) TempMinCelsius() float64 {
	return KelvinToCelsius(r.TempMinKelvin)
}

// TempMaxCelsius is the maximum temperature in Celsius.
func (r Record) TempMaxCelsius() float64 {
	return KelvinToCelsius(r.TempMaxKelvin)
}

// LocalZone returns the fixed zone of the observed place.
func (r Record) LocalZone() *time.Location {
	return time.FixedZone("", r.UTCOffsetSeconds)
}

// KelvinToCelsius converts a Kelvin temperature to Celsius.
func KelvinToCelsius(k float64) float64 {
	return k - kelvinOffset
}
