package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const noMatch = "NO_MATCH"

// AIMatcher asks Gemini to map spreadsheet labels onto form fields
type AIMatcher struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	log     *slog.Logger
}

// NewAIMatcher creates a matcher for the given Gemini model
func NewAIMatcher(ctx context.Context, apiKey, modelName string, log *slog.Logger) (*AIMatcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)

	log.Info("AI matcher initialized", "model", modelName, "temperature", 0.1)
	return &AIMatcher{
		client:  client,
		model:   model,
		timeout: 60 * time.Second,
		log:     log,
	}, nil
}

// Close releases the client
func (ai *AIMatcher) Close() error {
	if ai.client != nil {
		return ai.client.Close()
	}
	return nil
}

// Match sends one request covering all labels
func (ai *AIMatcher) Match(ctx context.Context, labels, fields []string) ([]Match, error) {
	if len(labels) == 0 || len(fields) == 0 {
		return nil, fmt.Errorf("both labels and fields must be provided")
	}

	prompt := buildMatchPrompt(labels, fields)
	ai.log.Debug("AI prompt", "length", len(prompt), "labels", len(labels), "fields", len(fields))

	ctx, cancel := context.WithTimeout(ctx, ai.timeout)
	defer cancel()

	type apiResult struct {
		resp *genai.GenerateContentResponse
		err  error
	}
	resultChan := make(chan apiResult, 1)
	start := time.Now()

	go func() {
		resp, err := ai.model.GenerateContent(ctx, genai.Text(prompt))
		resultChan <- apiResult{resp: resp, err: err}
	}()

	select {
	case result := <-resultChan:
		if result.err != nil {
			ai.log.Error("Gemini request failed", "error", result.err, "duration", time.Since(start))
			return nil, fmt.Errorf("failed to generate AI response: %w", result.err)
		}
		ai.log.Info("Received response from Gemini", "duration", time.Since(start))
		text, err := responseText(result.resp)
		if err != nil {
			return nil, err
		}
		ai.log.Debug("AI response", "content", text)
		return parseMatchResponse(text), nil

	case <-ctx.Done():
		return nil, fmt.Errorf("AI request stopped after %v: %w", time.Since(start).Round(time.Millisecond), ctx.Err())
	}
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response generated from AI")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no response generated from AI")
	}
	return sb.String(), nil
}

// buildMatchPrompt creates the instruction sent to the model
func buildMatchPrompt(labels, fields []string) string {
	var sb strings.Builder
	sb.WriteString(`You are helping to fill in a Dutch building-automation maintenance report.

TASK: Map each spreadsheet label to the report field it describes, or "NO_MATCH" if uncertain.

SPREADSHEET LABELS:
`)
	for _, l := range labels {
		fmt.Fprintf(&sb, "- %s\n", l)
	}
	sb.WriteString("\nREPORT FIELDS:\n")
	for _, f := range fields {
		fmt.Fprintf(&sb, "- %s\n", f)
	}
	sb.WriteString(`
INSTRUCTIONS:
1. Only suggest mappings you are confident about (>80% certainty)
2. Consider meaning, not just text similarity
3. Map each label to AT MOST ONE field and use each field at most once
4. Copy field names exactly, including the trailing colon

OUTPUT FORMAT (one line per label):
Label|Field|Confidence

EXAMPLES:
Naam opdrachtgever|Klantnaam:|0.95
Software release|Versie GBS software:|0.85
Opmerkingen|NO_MATCH|0.00

Now provide mappings for the spreadsheet labels:`)
	return sb.String()
}

// parseMatchResponse reads "Label|Field|Confidence" lines. Malformed lines
// and NO_MATCH answers are dropped; the confidence floor is applied by the caller.
func parseMatchResponse(response string) []Match {
	var matches []Match
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.Trim(strings.TrimSpace(line), "`")
		if line == "" || strings.HasPrefix(line, "Label|") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}

		label := strings.TrimSpace(parts[0])
		field := strings.TrimSpace(parts[1])
		if label == "" || field == "" || field == noMatch {
			continue
		}

		var confidence float64
		if _, err := fmt.Sscanf(strings.TrimSpace(parts[2]), "%f", &confidence); err != nil {
			confidence = 0
		}
		matches = append(matches, Match{Label: label, Field: field, Confidence: confidence})
	}
	return matches
}

// GetGeminiAPIKey gets the API key from the environment
func GetGeminiAPIKey() string {
	return os.Getenv("GEMINI_API_KEY")
}
