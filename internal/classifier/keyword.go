package classifier

import (
	"context"
	"strings"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// Keyword is a rule-based classifier driven by substring hint lists. It is
// deterministic and never returns an error, which makes it the fallback when
// no model-backed classifier is configured.
type Keyword struct{}

var _ Classifier = (*Keyword)(nil)

func NewKeyword() *Keyword {
	return &Keyword{}
}

// Hint lists are checked in order; the first matching rule wins. Intent rules
// are checked before the GENERAL_QUERY fallback, with COMPLETION outranking
// the rest so that "payment done, stop reminding" still records completion.
var (
	languageHints = []struct {
		lang  string
		hints []string
	}{
		{"hi", []string{"hai", "kya", "aap", "nahi"}},
		{"kn", []string{"ಹೌದು", "illa", "madiddini"}},
		{"ne", []string{"ho", "gary", "bhayo"}},
	}

	intentHints = []struct {
		intent models.Intent
		hints  []string
	}{
		{models.IntentCompletion, []string{"done", "paid", "complete", "madiddini", "ho", "hogaya", "हो गया"}},
		{models.IntentUPIQuery, []string{"upi", "gpay", "phonepe"}},
		{models.IntentOptOut, []string{"stop", "unsubscribe", "mat bhejo"}},
		{models.IntentConfused, []string{"dont understand", "samajh", "confuse", "kya karna"}},
	}

	sentimentHints = []struct {
		sentiment models.Sentiment
		hints     []string
	}{
		{models.SentimentPositive, []string{"thanks", "thank you", "great", "good", "dhanyavad"}},
		{models.SentimentNegative, []string{"bad", "angry", "worst", "sad"}},
		{models.SentimentConfused, []string{"confuse", "samajh nahi", "dont understand"}},
	}
)

func (k *Keyword) Classify(_ context.Context, text string) (Classification, error) {
	t := strings.ToLower(text)
	c := Classification{
		Language:  models.DefaultLanguage,
		Intent:    models.IntentGeneralQuery,
		Sentiment: models.SentimentNeutral,
	}
	for _, rule := range languageHints {
		if containsAny(t, rule.hints) {
			c.Language = rule.lang
			break
		}
	}
	for _, rule := range intentHints {
		if containsAny(t, rule.hints) {
			c.Intent = rule.intent
			break
		}
	}
	for _, rule := range sentimentHints {
		if containsAny(t, rule.hints) {
			c.Sentiment = rule.sentiment
			break
		}
	}
	return c, nil
}

func containsAny(t string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(t, h) {
			return true
		}
	}
	return false
}
