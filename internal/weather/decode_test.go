package weather

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

const samplePayload = `{
	"coord": {"lon": 2.35, "lat": 48.85},
	"weather": [
		{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"},
		{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}
	],
	"base": "stations",
	"main": {"temp": 281.2, "feels_like": 279.0, "temp_min": 280.0, "temp_max": 282.4, "pressure": 1012, "humidity": 81},
	"visibility": 10000,
	"clouds": {"all": 75},
	"dt": 1700000000,
	"sys": {"country": "FR"},
	"timezone": 3600,
	"id": 2988507,
	"name": "Paris",
	"cod": 200
}`

func TestDecode_WellFormed(t *testing.T) {
	rec, err := Decode([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if rec.LocationName != "Paris" {
		t.Errorf("LocationName = %q", rec.LocationName)
	}
	if !rec.ObservedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("ObservedAt = %v", rec.ObservedAt)
	}
	if rec.ObservedAt.Location() != time.UTC {
		t.Errorf("ObservedAt location = %v, want UTC", rec.ObservedAt.Location())
	}
	if rec.UTCOffsetSeconds != 3600 {
		t.Errorf("UTCOffsetSeconds = %d", rec.UTCOffsetSeconds)
	}
	if rec.TempMinKelvin != 280.0 || rec.TempMaxKelvin != 282.4 {
		t.Errorf("temps = %v/%v", rec.TempMinKelvin, rec.TempMaxKelvin)
	}
	if rec.HumidityPercent != 81 {
		t.Errorf("HumidityPercent = %d", rec.HumidityPercent)
	}
	if rec.CloudCoverPercent != 75 {
		t.Errorf("CloudCoverPercent = %d", rec.CloudCoverPercent)
	}
	if len(rec.Conditions) != 2 {
		t.Fatalf("len(Conditions) = %d, want 2", len(rec.Conditions))
	}

	primary, ok := rec.Primary()
	if !ok {
		t.Fatal("Primary() ok = false")
	}
	if primary != (Condition{Code: 803, Description: "broken clouds", Icon: "04d"}) {
		t.Errorf("Primary() = %+v", primary)
	}
}

func TestDecode_CelsiusIsKelvinMinusOffset(t *testing.T) {
	rec, err := Decode([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got, want := rec.TempMinCelsius(), 280.0-273.15; math.Abs(got-want) > 1e-9 {
		t.Errorf("TempMinCelsius() = %v, want %v", got, want)
	}
	if got, want := rec.TempMaxCelsius(), 282.4-273.15; math.Abs(got-want) > 1e-9 {
		t.Errorf("TempMaxCelsius() = %v, want %v", got, want)
	}
}

func TestDecode_EmptyConditionsAllowed(t *testing.T) {
	payload := strings.Replace(samplePayload, `"weather": [`, `"weather": [], "ignored": [`, 1)

	rec, err := Decode([]byte(payload))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(rec.Conditions) != 0 {
		t.Fatalf("len(Conditions) = %d, want 0", len(rec.Conditions))
	}
	if _, ok := rec.Primary(); ok {
		t.Error("Primary() ok = true for empty conditions")
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantMsg string
	}{
		{name: "not json", payload: `<html>`, wantMsg: ""},
		{name: "wrong type", payload: `{"name": 12}`, wantMsg: ""},
		{
			name:    "missing name",
			payload: `{"dt":1,"timezone":0,"main":{"temp_min":1,"temp_max":1,"humidity":1},"weather":[],"clouds":{"all":0}}`,
			wantMsg: `"name"`,
		},
		{
			name:    "missing temp_min",
			payload: `{"name":"x","dt":1,"timezone":0,"main":{"temp_max":1,"humidity":1},"weather":[],"clouds":{"all":0}}`,
			wantMsg: `"main.temp_min"`,
		},
		{
			name:    "missing clouds.all",
			payload: `{"name":"x","dt":1,"timezone":0,"main":{"temp_min":1,"temp_max":1,"humidity":1},"weather":[],"clouds":{}}`,
			wantMsg: `"clouds.all"`,
		},
		{
			name:    "null weather",
			payload: `{"name":"x","dt":1,"timezone":0,"main":{"temp_min":1,"temp_max":1,"humidity":1},"weather":null,"clouds":{"all":0}}`,
			wantMsg: `"weather"`,
		},
		{
			name:    "condition without icon",
			payload: `{"name":"x","dt":1,"timezone":0,"main":{"temp_min":1,"temp_max":1,"humidity":1},"weather":[{"id":800,"description":"clear sky"}],"clouds":{"all":0}}`,
			wantMsg: `"weather[0].icon"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.payload))
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("Decode() error = %v, want DecodeError", err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %s", err, tt.wantMsg)
			}
		})
	}
}
