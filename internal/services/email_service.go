package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESSender is the part of the SES client the notifier uses
type SESSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier mails one-time codes through AWS SES
type SESNotifier struct {
	client      SESSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS credential chain for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func NewSESNotifierWithClient(client SESSender, fromAddress string, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// SendOtp mails code to the account holder
func (n *SESNotifier) SendOtp(ctx context.Context, acct *models.Account, code int, expiry time.Duration) error {
	minutes := int(expiry.Minutes())
	name := acct.FirstName
	if name == "" {
		name = "there"
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 28px; letter-spacing: 6px; font-weight: bold; padding: 12px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <p>Hello %s,</p>
        <p>Your verification code is:</p>
        <p class="code">%06d</p>
        <p>The code expires in %d minutes. If you did not try to sign in, you can ignore this email.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, html.EscapeString(name), code, minutes)

	textBody := fmt.Sprintf(`Hello %s,

Your verification code is: %06d

The code expires in %d minutes. If you did not try to sign in, you can ignore this email.

This is an automated message. Please do not reply to this email.
`, name, code, minutes)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{acct.Email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your verification code"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send otp email via SES",
			slog.String("email", pkglogger.SanitizedEmail(acct.Email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("otp email sent",
		slog.String("email", pkglogger.SanitizedEmail(acct.Email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
