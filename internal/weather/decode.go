package weather

import (
	"encoding/json"
	"fmt"
	"time"
)

// currentPayload mirrors the provider's current-weather JSON. Pointer fields
// let Decode tell a missing key from a zero value.
type currentPayload struct {
	Name     *string `json:"name"`
	Dt       *int64  `json:"dt"`
	Timezone *int    `json:"timezone"`
	Main     *struct {
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity *int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		ID          *int    `json:"id"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
	} `json:"weather"`
	Clouds *struct {
		All *int `json:"all"`
	} `json:"clouds"`
}

// Decode parses a provider current-weather payload into a Record.
//
// Provider keys are remapped here: main.temp_min/temp_max/humidity, clouds.all
// and weather[].id/description/icon. "dt" is epoch seconds. Unknown keys are
// ignored; a missing required key is a decode error. Every failure is an
// *Error of KindDecode.
func Decode(data []byte) (Record, error) {
	var p currentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Record{}, NewError(KindDecode, err.Error(), err)
	}

	if err := p.checkRequired(); err != nil {
		return Record{}, err
	}

	rec := Record{
		LocationName:      *p.Name,
		ObservedAt:        time.Unix(*p.Dt, 0).UTC(),
		UTCOffsetSeconds:  *p.Timezone,
		TempMinKelvin:     *p.Main.TempMin,
		TempMaxKelvin:     *p.Main.TempMax,
		HumidityPercent:   *p.Main.Humidity,
		CloudCoverPercent: *p.Clouds.All,
		Conditions:        make([]Condition, 0, len(p.Weather)),
	}

	for _, w := range p.Weather {
		rec.Conditions = append(rec.Conditions, Condition{
			Code:        *w.ID,
			Description: *w.Description,
			Icon:        *w.Icon,
		})
	}

	return rec, nil
}

func (p *currentPayload) checkRequired() error {
	missing := func(key string) error {
		return NewError(KindDecode, fmt.Sprintf("missing required key %q", key), nil)
	}

	switch {
	case p.Name == nil:
		return missing("name")
	case p.Dt == nil:
		return missing("dt")
	case p.Timezone == nil:
		return missing("timezone")
	case p.Main == nil:
		return missing("main")
	case p.Main.TempMin == nil:
		return missing("main.temp_min")
	case p.Main.TempMax == nil:
		return missing("main.temp_max")
	case p.Main.Humidity == nil:
		return missing("main.humidity")
	case p.Weather == nil:
		return missing("weather")
	case p.Clouds == nil:
		return missing("clouds")
	case p.Clouds.All == nil:
		return missing("clouds.all")
	}

	for i, w := range p.Weather {
		switch {
		case w.ID == nil:
			return missing(fmt.Sprintf("weather[%d].id", i))
		case w.Description == nil:
			return missing(fmt.Sprintf("weather[%d].description", i))
		case w.Icon == nil:
			return missing(fmt.Sprintf("weather[%d].icon", i))
		}
	}

	return nil
}
