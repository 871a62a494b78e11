package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dashboard/internal/types"
)

func newOpenMeteoTestClient(t *testing.T, handler http.HandlerFunc) *OpenMeteoClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenMeteoClientWithBase(newTestClient(t, RetryPolicy{}), OpenMeteoConfig{
		GeocodingURL: server.URL,
		ForecastURL:  server.URL + "/",
		Logger:       discardLogger(),
		Now:          fixedClock(),
	})
}

func TestOpenMeteo_Forecast(t *testing.T) {
	client := newOpenMeteoTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/search":
			if got := r.URL.Query().Get("name"); got != "Oslo" {
				t.Errorf("geocoding name = %q, want Oslo", got)
			}
			w.Write([]byte(`{"results":[{"name":"Oslo","latitude":59.9127,"longitude":10.7461,"country":"Norway","admin1":"Oslo County"}]}`))
		case "/v1/forecast":
			q := r.URL.Query()
			if q.Get("latitude") != "59.9127" || q.Get("forecast_hours") != "24" {
				t.Errorf("unexpected forecast query: %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"hourly":{
				"time":["2026-03-02T07:00","2026-03-02T08:00"],
				"temperature_2m":[-1.5,0.2],
				"apparent_temperature":[-4.0,null],
				"precipitation_probability":[10,20],
				"weather_code":[3,71]
			}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	p, err := client.Forecast(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}

	if p.ResolvedName != "Oslo, Oslo County, Norway" {
		t.Errorf("ResolvedName = %q", p.ResolvedName)
	}
	if p.Provider != "open-meteo" {
		t.Errorf("Provider = %q", p.Provider)
	}
	if len(p.HourlyData) != 2 {
		t.Fatalf("len(HourlyData) = %d, want 2", len(p.HourlyData))
	}
	h0, h1 := p.HourlyData[0], p.HourlyData[1]
	if h0.TimeIso != "2026-03-02T07:00:00.000Z" || h0.TemperatureC != -1.5 || h0.Summary != "Overcast" {
		t.Errorf("unexpected first hour: %+v", h0)
	}
	if h0.ApparentTemperatureC == nil || *h0.ApparentTemperatureC != -4.0 {
		t.Errorf("ApparentTemperatureC = %v, want -4.0", h0.ApparentTemperatureC)
	}
	if h1.ApparentTemperatureC != nil {
		t.Errorf("null apparent temperature should stay nil, got %v", *h1.ApparentTemperatureC)
	}
	if h1.WindSpeedKmh != nil {
		t.Error("absent wind column should leave WindSpeedKmh nil")
	}
	if h1.Summary != "Light snow" {
		t.Errorf("second hour summary = %q", h1.Summary)
	}
}

func TestOpenMeteo_UnknownLocation(t *testing.T) {
	client := newOpenMeteoTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})

	_, err := client.Forecast(context.Background(), "Atlantis")
	if appErr := requireAppError(t, err); appErr.Code != types.ErrCodeNotFound {
		t.Errorf("code = %s, want NOT_FOUND", appErr.Code)
	}
}

func TestOpenMeteo_InconsistentArrays(t *testing.T) {
	client := newOpenMeteoTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/search" {
			w.Write([]byte(`{"results":[{"name":"X","latitude":1,"longitude":2}]}`))
			return
		}
		w.Write([]byte(`{"hourly":{"time":["2026-03-02T07:00"],"temperature_2m":[],"weather_code":[0]}}`))
	})

	_, err := client.Forecast(context.Background(), "X")
	appErr := requireAppError(t, err)
	if appErr.Code != types.ErrCodeProviderError {
		t.Errorf("code = %s, want PROVIDER_ERROR", appErr.Code)
	}
}

func TestOpenMeteo_UpstreamFailure(t *testing.T) {
	client := newOpenMeteoTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Forecast(context.Background(), "Oslo")
	appErr := requireAppError(t, err)
	if appErr.ProviderStatus != http.StatusServiceUnavailable {
		t.Errorf("ProviderStatus = %d, want 503", appErr.ProviderStatus)
	}
}

func TestDescribeWeatherCode(t *testing.T) {
	tests := map[int]string{0: "Clear sky", 95: "Thunderstorm", 42: "Unknown"}
	for code, want := range tests {
		if got := DescribeWeatherCode(code); got != want {
			t.Errorf("DescribeWeatherCode(%d) = %q, want %q", code, got, want)
		}
	}
}
