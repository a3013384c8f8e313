// Package classifier detects language, intent and sentiment of inbound
// message text. The workflow engine depends only on the Classifier interface;
// the keyword implementation is pure and runs without network access, the
// OpenAI implementation delegates to a chat model.
package classifier

import (
	"context"

	"github.com/rushikeshhadawale/unified-ai-command-centre/internal/models"
)

// Classification is the result of analyzing one inbound message.
type Classification struct {
	Language  string
	Intent    models.Intent
	Sentiment models.Sentiment
}

// Classifier analyzes inbound message text. Implementations must be safe for
// concurrent use and must return values from the closed enum sets only.
type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}
