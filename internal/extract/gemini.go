package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

const promptTemplate = `Extract development tasks from the following user request.
The user wants to run commands in specific directories.
Return a JSON array of objects with 'name' (short descriptive name), 'path' (absolute path or relative if implied), and 'command' (the command to execute).

User Request:
%s`

// GeminiConfig configures the Gemini extractor.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // optional, for proxies and tests
	Timeout time.Duration
}

// Gemini extracts tasks with the Gemini API using structured JSON output.
type Gemini struct {
	cfg GeminiConfig
}

// NewGemini creates a Gemini extractor. A missing API key is reported on
// Extract, not here, so the daemon can start without credentials.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	return &Gemini{cfg: cfg}
}

// Name returns "gemini".
func (g *Gemini) Name() string { return "gemini" }

// Extract sends one generateContent request and returns the response text.
func (g *Gemini) Extract(ctx context.Context, instruction string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  g.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if g.cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return "", &Error{Provider: g.Name(), Err: fmt.Errorf("create client: %w", err)}
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, g.cfg.Model,
		genai.Text(fmt.Sprintf(promptTemplate, instruction)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   taskListSchema(),
		},
	)
	if err != nil {
		return "", &Error{Provider: g.Name(), Err: err}
	}

	log.Debug().
		Str("model", g.cfg.Model).
		Dur("elapsed", time.Since(start)).
		Msg("gemini extraction complete")
	return resp.Text(), nil
}

func taskListSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":    {Type: genai.TypeString, Description: "A short name for the window title"},
				"path":    {Type: genai.TypeString, Description: "The working directory path"},
				"command": {Type: genai.TypeString, Description: "The command to execute"},
			},
			Required: []string{"name", "path", "command"},
		},
	}
}
