// Package jokes fetches a single Spanish joke from JokeAPI.
package jokes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Fallback is spoken when no joke can be fetched.
const Fallback = "Lo siento, no pude pensar en un chiste ahora mismo."

// ErrNoJoke indicates the service answered without usable joke text.
var ErrNoJoke = errors.New("joke service returned no joke")

// Client fetches jokes from URL.
type Client struct {
	URL  string
	HTTP *http.Client
}

type apiJoke struct {
	Error    bool   `json:"error"`
	Type     string `json:"type"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// Joke returns one joke. Two-part jokes join setup and delivery with a newline.
func (c Client) Joke(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build joke request: %w", err)
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("joke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("joke request: status %d", resp.StatusCode)
	}

	var payload apiJoke
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode joke response: %w", err)
	}
	if payload.Error {
		return "", ErrNoJoke
	}

	var text string
	if payload.Type == "single" {
		text = strings.TrimSpace(payload.Joke)
	} else {
		setup := strings.TrimSpace(payload.Setup)
		delivery := strings.TrimSpace(payload.Delivery)
		if setup != "" && delivery != "" {
			text = setup + "\n" + delivery
		}
	}
	if text == "" {
		return "", ErrNoJoke
	}
	return text, nil
}
