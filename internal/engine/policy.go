package engine

import "github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"

// ReplyDecision is the outcome of the inbound reply policy for one message:
// an optional automated reply, whether the user opted out, and the signal fed
// into REPLY_BASED workflow advancement.
type ReplyDecision struct {
	ReplyText string
	OptOut    bool
	Outcome   models.StepOutcome
}

var thankYouReplies = map[string]string{
	"hi": "धन्यवाद! आपका भुगतान दर्ज कर लिया गया है।",
	"kn": "ಧನ್ಯವಾದಗಳು! ನಿಮ್ಮ ಪಾವತಿ ದಾಖಲಿಸಲಾಗಿದೆ.",
	"ne": "धन्यवाद! तपाइँको भुक्तानी रेकर्ड भयो।",
	"en": "Thank you! Your payment has been recorded.",
}

var unsubscribeReplies = map[string]string{
	"hi": "आपको आगे की सूचनाओं से हटा दिया गया है।",
	"kn": "ಮುಂದಿನ ಅಧಿಸೂಚನೆಗಳಿಂದ ನಿಮ್ಮನ್ನು ತೆಗೆದುಹಾಕಲಾಗಿದೆ.",
	"ne": "तपाईंलाई थप सूचनाहरूबाट हटाइएको छ।",
	"en": "You have been unsubscribed from further notifications.",
}

const confusedReply = "No problem. A team member will contact you shortly to explain."

// DecideReply maps (intent, language) to an automated reply and a workflow
// outcome. Reply text keys off the detected language, falling back to
// English. UPI and general queries get no automated reply; the message is
// only logged.
func DecideReply(intent models.Intent, language string) ReplyDecision {
	switch intent {
	case models.IntentCompletion:
		return ReplyDecision{ReplyText: localized(thankYouReplies, language), Outcome: models.OutcomeSuccess}
	case models.IntentConfused:
		return ReplyDecision{ReplyText: confusedReply, Outcome: models.OutcomeNone}
	case models.IntentOptOut:
		return ReplyDecision{ReplyText: localized(unsubscribeReplies, language), OptOut: true, Outcome: models.OutcomeFailure}
	default:
		return ReplyDecision{Outcome: models.OutcomeNone}
	}
}

func localized(replies map[string]string, language string) string {
	if text, ok := replies[language]; ok {
		return text
	}
	return replies[models.DefaultLanguage]
}
