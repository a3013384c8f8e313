package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

const classifySystemPrompt = `You classify short messages from domestic workers and their employers.
Respond with a single JSON object and nothing else:
{"language": "<ISO 639-1 code, e.g. en, hi, kn, ne>",
 "intent": "<one of COMPLETION, UPI_QUERY, OPT_OUT, CONFUSED, GENERAL_QUERY>",
 "sentiment": "<one of POSITIVE, NEUTRAL, NEGATIVE, CONFUSED>"}`

// OpenAI classifies messages with a chat model. Labels outside the closed
// enum sets are coerced to the defaults rather than rejected, so a drifting
// model cannot push free-form strings into the engine.
type OpenAI struct {
	client openai.Client
	model  openai.ChatModel
}

var _ Classifier = (*OpenAI)(nil)

// NewOpenAI creates a model-backed classifier. An empty model selects
// GPT-4o mini.
func NewOpenAI(apiKey string, model openai.ChatModel) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &OpenAI{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAI) Classify(ctx context.Context, text string) (Classification, error) {
	slog.Debug("OpenAI.Classify: sending classification request", "text_length", len(text))
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(classifySystemPrompt),
			openai.UserMessage(text),
		},
		Model: o.model,
	})
	if err != nil {
		return Classification{}, fmt.Errorf("classification request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Classification{}, fmt.Errorf("classification returned no choices")
	}
	return parseClassification(resp.Choices[0].Message.Content), nil
}

// parseClassification decodes the model's JSON answer, tolerating code
// fences and unknown labels.
func parseClassification(raw string) Classification {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out struct {
		Language  string `json:"language"`
		Intent    string `json:"intent"`
		Sentiment string `json:"sentiment"`
	}
	c := Classification{
		Language:  models.DefaultLanguage,
		Intent:    models.IntentGeneralQuery,
		Sentiment: models.SentimentNeutral,
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		slog.Warn("OpenAI.Classify: unparseable model output, using defaults", "error", err)
		return c
	}
	if lang := strings.ToLower(strings.TrimSpace(out.Language)); lang != "" {
		c.Language = lang
	}
	if intent, err := models.ParseIntent(strings.ToUpper(strings.TrimSpace(out.Intent))); err == nil {
		c.Intent = intent
	}
	if sentiment, err := models.ParseSentiment(strings.ToUpper(strings.TrimSpace(out.Sentiment))); err == nil {
		c.Sentiment = sentiment
	}
	return c
}
