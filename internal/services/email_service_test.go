package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSESNotifier_SendOtp(t *testing.T) {
	sender := &MockSESSender{}
	notifier := NewSESNotifierWithClient(sender, "no-reply@warden.test", slog.Default())

	acct := NewTestAccount(1, "ada@example.com")
	acct.FirstName = "<Ada>"

	err := notifier.SendOtp(context.Background(), acct, 4321, 5*time.Minute)

	require.NoError(t, err)
	require.Len(t, sender.Inputs, 1)
	input := sender.Inputs[0]
	assert.Equal(t, "no-reply@warden.test", aws.ToString(input.Source))
	assert.Equal(t, []string{"ada@example.com"}, input.Destination.ToAddresses)

	htmlBody := aws.ToString(input.Message.Body.Html.Data)
	assert.Contains(t, htmlBody, "004321")
	assert.Contains(t, htmlBody, "&lt;Ada&gt;")
	assert.Contains(t, htmlBody, "5 minutes")

	textBody := aws.ToString(input.Message.Body.Text.Data)
	assert.Contains(t, textBody, "Your verification code is: 004321")
}

func TestSESNotifier_SendOtp_DefaultGreeting(t *testing.T) {
	sender := &MockSESSender{}
	notifier := NewSESNotifierWithClient(sender, "no-reply@warden.test", slog.Default())

	err := notifier.SendOtp(context.Background(), &models.Account{Email: "x@example.com"}, 123456, 5*time.Minute)

	require.NoError(t, err)
	assert.Contains(t, aws.ToString(sender.Inputs[0].Message.Body.Text.Data), "Hello there,")
}

func TestSESNotifier_SendOtp_Failure(t *testing.T) {
	sender := &MockSESSender{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	notifier := NewSESNotifierWithClient(sender, "no-reply@warden.test", slog.Default())

	err := notifier.SendOtp(context.Background(), NewTestAccount(1, "ada@example.com"), 123456, 5*time.Minute)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}
