package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// SESOpts holds configuration options for the SES email sender.
type SESOpts struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

// SESOption configures the SES email sender.
type SESOption func(*SESOpts)

func WithRegion(region string) SESOption {
	return func(o *SESOpts) { o.Region = region }
}

func WithCredentials(accessKey, secretKey string) SESOption {
	return func(o *SESOpts) {
		o.AccessKey = accessKey
		o.SecretKey = secretKey
	}
}

func WithFromAddress(from string) SESOption {
	return func(o *SESOpts) { o.From = from }
}

// SESSender sends email through the AWS SES v2 API.
type SESSender struct {
	client *sesv2.Client
	from   string
}

var _ EmailSender = (*SESSender)(nil)

// NewSESSender creates an SES-backed email sender. Options fall back to the
// AWS_* / EMAIL_FROM environment variables; when explicit static credentials
// are absent the default AWS credential chain applies.
func NewSESSender(ctx context.Context, opts ...SESOption) (*SESSender, error) {
	var cfg SESOpts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
	}
	if cfg.AccessKey == "" {
		cfg.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
	}
	if cfg.From == "" {
		cfg.From = os.Getenv("EMAIL_FROM")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region must be provided")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from address must be provided")
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESSender{client: sesv2.NewFromConfig(awsCfg), from: cfg.From}, nil
}

func (s *SESSender) SendEmail(ctx context.Context, email, subject, text string) (string, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{email}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		slog.Error("SESSender.SendEmail failed", "to", email, "error", err)
		return "", &SendError{Channel: "EMAIL", Recipient: email, Err: err}
	}
	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	slog.Debug("SESSender.SendEmail sent", "to", email, "message_id", messageID)
	return messageID, nil
}
