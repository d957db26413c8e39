package models

import "time"

// Zone is a National Weather Service forecast zone record. Field names mirror
// the NWS zones payload.
type Zone struct {
	Key                 string   `json:"id"`
	Name                string   `json:"name"`
	State               string   `json:"state"`
	ObservationStations []string `json:"observationStations"`
}

// ForecastPeriod is a single time-boxed prediction within a zone forecast.
// Periods keep the ordering of the upstream response.
type ForecastPeriod struct {
	Number           int    `json:"number"`
	Name             string `json:"name"`
	Temperature      int    `json:"temperature"`
	TemperatureUnit  string `json:"temperatureUnit"`
	WindSpeed        string `json:"windSpeed"`
	WindDirection    string `json:"windDirection"`
	ShortForecast    string `json:"shortForecast"`
	DetailedForecast string `json:"detailedForecast"`
}

// Forecast is the forecast for one zone.
type Forecast struct {
	ZoneID  string           `json:"zoneId"`
	Updated time.Time        `json:"updated"`
	Periods []ForecastPeriod `json:"periods"`
}
