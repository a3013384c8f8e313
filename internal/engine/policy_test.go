package engine

import (
	"testing"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

func TestDecideReply(t *testing.T) {
	tests := []struct {
		name        string
		intent      models.Intent
		language    string
		wantReply   string
		wantOptOut  bool
		wantOutcome models.StepOutcome
	}{
		{
			name:        "completion english",
			intent:      models.IntentCompletion,
			language:    "en",
			wantReply:   "Thank you! Your payment has been recorded.",
			wantOutcome: models.OutcomeSuccess,
		},
		{
			name:        "completion hindi",
			intent:      models.IntentCompletion,
			language:    "hi",
			wantReply:   "धन्यवाद! आपका भुगतान दर्ज कर लिया गया है।",
			wantOutcome: models.OutcomeSuccess,
		},
		{
			name:        "completion kannada",
			intent:      models.IntentCompletion,
			language:    "kn",
			wantReply:   "ಧನ್ಯವಾದಗಳು! ನಿಮ್ಮ ಪಾವತಿ ದಾಖಲಿಸಲಾಗಿದೆ.",
			wantOutcome: models.OutcomeSuccess,
		},
		{
			name:        "completion nepali",
			intent:      models.IntentCompletion,
			language:    "ne",
			wantReply:   "धन्यवाद! तपाइँको भुक्तानी रेकर्ड भयो।",
			wantOutcome: models.OutcomeSuccess,
		},
		{
			name:        "unsupported language falls back to english",
			intent:      models.IntentCompletion,
			language:    "fr",
			wantReply:   "Thank you! Your payment has been recorded.",
			wantOutcome: models.OutcomeSuccess,
		},
		{
			name:        "confused escalates to a human",
			intent:      models.IntentConfused,
			language:    "hi",
			wantReply:   "No problem. A team member will contact you shortly to explain.",
			wantOutcome: models.OutcomeNone,
		},
		{
			name:        "opt out english",
			intent:      models.IntentOptOut,
			language:    "en",
			wantReply:   "You have been unsubscribed from further notifications.",
			wantOptOut:  true,
			wantOutcome: models.OutcomeFailure,
		},
		{
			name:        "opt out unsupported language",
			intent:      models.IntentOptOut,
			language:    "ta",
			wantReply:   "You have been unsubscribed from further notifications.",
			wantOptOut:  true,
			wantOutcome: models.OutcomeFailure,
		},
		{
			name:        "upi query gets no reply",
			intent:      models.IntentUPIQuery,
			language:    "en",
			wantOutcome: models.OutcomeNone,
		},
		{
			name:        "general query gets no reply",
			intent:      models.IntentGeneralQuery,
			language:    "en",
			wantOutcome: models.OutcomeNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideReply(tt.intent, tt.language)
			if got.ReplyText != tt.wantReply {
				t.Errorf("reply = %q, want %q", got.ReplyText, tt.wantReply)
			}
			if got.OptOut != tt.wantOptOut {
				t.Errorf("optOut = %v, want %v", got.OptOut, tt.wantOptOut)
			}
			if got.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", got.Outcome, tt.wantOutcome)
			}
		})
	}
}
