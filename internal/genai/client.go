// Package genai answers free-form questions and describes screen or audio
// snapshots through an OpenAI-compatible chat completions endpoint.
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var (
	// ErrAttachment indicates a snapshot file could not be read or encoded.
	ErrAttachment = errors.New("attachment unreadable")
	// ErrEmptyAnswer indicates the model returned no text.
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)

const systemPrompt = "Eres un asistente de voz. Responde siempre en español, de forma breve y natural, sin formato markdown."

// ScreenPrompt asks for a conversational description of a screenshot.
const ScreenPrompt = `Describe la imagen de la pantalla que te envío en español. Intenta ser natural y conversacional, como si le estuvieras explicando a una persona qué hay en la pantalla.
Describe los elementos principales, su función o propósito, y el diseño general.
Evita ser demasiado técnico o literal en la descripción. Enfócate en lo que sería útil para una persona entender al ver esta pantalla.
Responde en español.`

var markdownMarks = regexp.MustCompile(`[*_]`)

// Config configures the generative client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Request is one question with an optional image or audio attachment.
type Request struct {
	Prompt    string
	ImagePath string
	AudioPath string
}

// Client calls the chat completions API.
type Client struct {
	api     openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New constructs a client. An empty API key is a configuration error.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("ai api key is empty")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("ai model is empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		model:   strings.TrimSpace(cfg.Model),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Generate sends req and returns the answer with markdown emphasis removed.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}

	if req.ImagePath != "" {
		part, err := imagePart(req.ImagePath)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	if req.AudioPath != "" {
		part, err := audioPart(req.AudioPath)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.api.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}

	answer := Clean(resp.Choices[0].Message.Content)
	c.logger.Debug("ai answer", "latency_ms", time.Since(started).Milliseconds(), "chars", len(answer))
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

// Clean strips markdown emphasis marks and surrounding whitespace.
func Clean(answer string) string {
	return strings.TrimSpace(markdownMarks.ReplaceAllString(answer, ""))
}

// SongTitle extracts the title from answers shaped like "the song is: X".
func SongTitle(answer string) (string, bool) {
	idx := strings.Index(strings.ToLower(answer), "is:")
	if idx < 0 {
		return "", false
	}
	title := strings.TrimSpace(answer[idx+len("is:"):])
	return title, title != ""
}

func imagePart(path string) (openai.ChatCompletionContentPartUnionParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("%w: %v", ErrAttachment, err)
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("%w: %s is not an image", ErrAttachment, filepath.Base(path))
	}

	url := "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}), nil
}

func audioPart(path string) (openai.ChatCompletionContentPartUnionParam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("%w: %v", ErrAttachment, err)
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format != "wav" && format != "mp3" {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("%w: unsupported audio format %q", ErrAttachment, format)
	}
	return openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
		Data:   base64.StdEncoding.EncodeToString(data),
		Format: format,
	}), nil
}
