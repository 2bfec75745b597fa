// Package weather fetches current conditions from OpenWeatherMap and turns
// them into short spoken sentences.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roimerbautista/alkaris/internal/transcript"
)

var (
	// ErrCityNotFound indicates the service did not recognize the city.
	ErrCityNotFound = errors.New("city not found")
	// ErrUnknownAspect indicates a requested aspect has no sentence.
	ErrUnknownAspect = errors.New("unknown weather aspect")
)

// DefaultAspect summarizes every field.
const DefaultAspect = "resumen"

var queryPattern = regexp.MustCompile(`(?i)(?:clima|tiempo|condiciones)\s+(?:(?:para|en|de)\s+)?(.+?)(?:\s+sobre\s+(.+))?$`)

// Report is the subset of current conditions the assistant speaks.
type Report struct {
	Description string
	Temp        float64
	Wind        float64
	Humidity    int
	Pressure    int
	Clouds      int
}

// Client queries the current weather endpoint.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

type apiResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
		Pressure int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches metric conditions for city with Spanish descriptions.
func (c Client) Current(ctx context.Context, city string) (Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return Report{}, ErrCityNotFound
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return Report{}, errors.New("weather api key is empty")
	}

	endpoint, err := url.Parse(c.BaseURL)
	if err != nil {
		return Report{}, fmt.Errorf("parse weather url: %w", err)
	}
	q := endpoint.Query()
	q.Set("q", city)
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")
	q.Set("lang", "es")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("build weather request: %w", err)
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusNotFound {
			return Report{}, fmt.Errorf("%w: %s", ErrCityNotFound, city)
		}
		return Report{}, fmt.Errorf("weather request: status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("decode weather response: %w", err)
	}
	report := Report{
		Temp:     payload.Main.Temp,
		Wind:     payload.Wind.Speed,
		Humidity: payload.Main.Humidity,
		Pressure: payload.Main.Pressure,
		Clouds:   payload.Clouds.All,
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
	}
	return report, nil
}

// ParseQuery extracts the city and aspect from phrases such as
// "clima en madrid sobre humedad". The aspect defaults to DefaultAspect.
func ParseQuery(spoken string) (city string, aspect string, ok bool) {
	m := queryPattern.FindStringSubmatch(strings.TrimSpace(spoken))
	if m == nil {
		return "", "", false
	}
	city = cleanCity(m[1])
	aspect = strings.TrimSpace(m[2])
	if aspect == "" {
		aspect = DefaultAspect
	}
	return city, aspect, city != ""
}

// ParseAspectQuery handles "dime <aspect> en <city>".
func ParseAspectQuery(text string) (city string, aspect string, ok bool) {
	words := strings.Fields(text)
	if len(words) == 0 || words[0] != "dime" {
		return "", "", false
	}
	for i, w := range words {
		if w == "en" && i > 0 {
			aspect = strings.Join(words[1:i], " ")
			city = cleanCity(strings.Join(words[i+1:], " "))
			return city, aspect, city != ""
		}
	}
	return "", "", false
}

// Sentence renders one aspect of r for city.
func Sentence(r Report, city string, aspect string) (string, error) {
	temp := formatFloat(r.Temp)
	wind := formatFloat(r.Wind)

	switch normalizeAspect(aspect) {
	case "temperatura":
		return fmt.Sprintf("La temperatura es de %s°C.", temp), nil
	case "viento":
		return fmt.Sprintf("La velocidad del viento es de %s m/s.", wind), nil
	case "humedad":
		return fmt.Sprintf("La humedad es del %d%%.", r.Humidity), nil
	case "presion":
		return fmt.Sprintf("La presión atmosférica es de %d hPa.", r.Pressure), nil
	case "nubes":
		return fmt.Sprintf("Nubosidad del %d%%.", r.Clouds), nil
	case "descripcion":
		return r.Description, nil
	case "resumen", "":
		return fmt.Sprintf("Clima en %s: %s, Temperatura: %s°C, Presión: %d hPa, Humedad: %d%%, Viento: %s m/s, Nubosidad: %d%%.",
			city, r.Description, temp, r.Pressure, r.Humidity, wind, r.Clouds), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAspect, aspect)
	}
}

// IsAspect reports whether aspect names a field Sentence can render.
func IsAspect(aspect string) bool {
	_, ok := aspects[normalizeAspect(aspect)]
	return ok
}

var aspects = map[string]struct{}{
	"temperatura": {}, "viento": {}, "humedad": {}, "presion": {},
	"nubes": {}, "descripcion": {}, "resumen": {},
}

// normalizeAspect folds accents and drops a leading article, so
// "la presión" and "presion" compare equal.
func normalizeAspect(aspect string) string {
	words := strings.Fields(transcript.Normalize(aspect))
	if len(words) > 1 {
		switch words[0] {
		case "el", "la", "los", "las":
			words = words[1:]
		}
	}
	return strings.Join(words, " ")
}

func cleanCity(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 127 {
			return r
		}
		return ' '
	}, raw)
	return strings.Join(strings.Fields(cleaned), " ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
