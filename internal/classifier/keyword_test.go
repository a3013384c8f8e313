package classifier

import (
	"context"
	"testing"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

func TestKeywordClassify(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantLanguage  string
		wantIntent    models.Intent
		wantSentiment models.Sentiment
	}{
		{
			name:          "english completion",
			text:          "payment done",
			wantLanguage:  "en",
			wantIntent:    models.IntentCompletion,
			wantSentiment: models.SentimentNeutral,
		},
		{
			// "hogaya" matches the "ho" hint, so language resolves to ne.
			name:          "romanized completion",
			text:          "paisa de diya hogaya",
			wantLanguage:  "ne",
			wantIntent:    models.IntentCompletion,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "hindi language hint",
			text:          "kya karna hai",
			wantLanguage:  "hi",
			wantIntent:    models.IntentConfused,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "kannada completion",
			text:          "madiddini",
			wantLanguage:  "kn",
			wantIntent:    models.IntentCompletion,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "upi query",
			text:          "can I pay via gpay?",
			wantLanguage:  "en",
			wantIntent:    models.IntentUPIQuery,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "opt out",
			text:          "please STOP messaging me",
			wantLanguage:  "en",
			wantIntent:    models.IntentOptOut,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "hindi opt out",
			text:          "mujhe message mat bhejo",
			wantLanguage:  "en",
			wantIntent:    models.IntentOptOut,
			wantSentiment: models.SentimentNeutral,
		},
		{
			name:          "confused with sentiment",
			text:          "I dont understand this message",
			wantLanguage:  "en",
			wantIntent:    models.IntentConfused,
			wantSentiment: models.SentimentConfused,
		},
		{
			name:          "positive thanks",
			text:          "thank you",
			wantLanguage:  "en",
			wantIntent:    models.IntentGeneralQuery,
			wantSentiment: models.SentimentPositive,
		},
		{
			name:          "negative",
			text:          "this is the worst",
			wantLanguage:  "en",
			wantIntent:    models.IntentGeneralQuery,
			wantSentiment: models.SentimentNegative,
		},
		{
			name:          "fallthrough",
			text:          "when is my next shift",
			wantLanguage:  "en",
			wantIntent:    models.IntentGeneralQuery,
			wantSentiment: models.SentimentNeutral,
		},
	}

	k := NewKeyword()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := k.Classify(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if got.Language != tt.wantLanguage {
				t.Errorf("language = %q, want %q", got.Language, tt.wantLanguage)
			}
			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.wantIntent)
			}
			if got.Sentiment != tt.wantSentiment {
				t.Errorf("sentiment = %q, want %q", got.Sentiment, tt.wantSentiment)
			}
		})
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Classification
	}{
		{
			name: "plain json",
			raw:  `{"language":"hi","intent":"COMPLETION","sentiment":"POSITIVE"}`,
			want: Classification{Language: "hi", Intent: models.IntentCompletion, Sentiment: models.SentimentPositive},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"language\":\"kn\",\"intent\":\"OPT_OUT\",\"sentiment\":\"NEGATIVE\"}\n```",
			want: Classification{Language: "kn", Intent: models.IntentOptOut, Sentiment: models.SentimentNegative},
		},
		{
			name: "unknown labels fall back",
			raw:  `{"language":"fr","intent":"PAYMENT_MAYBE","sentiment":"ECSTATIC"}`,
			want: Classification{Language: "fr", Intent: models.IntentGeneralQuery, Sentiment: models.SentimentNeutral},
		},
		{
			name: "garbage falls back entirely",
			raw:  "I think the user paid.",
			want: Classification{Language: "en", Intent: models.IntentGeneralQuery, Sentiment: models.SentimentNeutral},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseClassification(tt.raw); got != tt.want {
				t.Errorf("parseClassification(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}
