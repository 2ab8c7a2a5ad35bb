package destination

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"

	"github.com/opsflare-systems/opsflare/event"
)

// sesAPI is the slice of the SES v2 client the destination needs. Tests
// substitute it; production loads the real client lazily.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Email delivers events as HTML mail through Amazon SES. The SES client is
// constructed on first send, so an unconfigured or Slack-only deployment never
// touches the AWS SDK credential chain.
type Email struct {
	from    string
	to      []string
	replyTo []string
	region  string

	once    sync.Once
	client  sesAPI
	initErr error
}

// NewEmail creates the email destination. Missing sender or recipients make it
// inert rather than an error.
func NewEmail(from string, to, replyTo []string, region string) *Email {
	return &Email{
		from:    from,
		to:      to,
		replyTo: replyTo,
		region:  region,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Enabled() bool { return e != nil && e.from != "" && len(e.to) > 0 }

// Send renders and delivers the event, with the same bounded-retry discipline
// as every other destination.
func (e *Email) Send(ctx context.Context, ev *event.Event) Result {
	if !e.Enabled() {
		return Result{Destination: e.Name(), Err: ErrNotConfigured}
	}

	client, err := e.api(ctx)
	if err != nil {
		return Result{Destination: e.Name(), Err: fmt.Errorf("load ses client: %w", err)}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(e.from),
		Destination:      &types.Destination{ToAddresses: e.to},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: utf8Content(subjectFor(ev)),
				Body: &types.Body{
					Text: utf8Content(textBody(ev)),
					Html: utf8Content(htmlBody(ev)),
				},
			},
		},
	}
	if len(e.replyTo) > 0 {
		input.ReplyToAddresses = e.replyTo
	}

	return sendWithRetry(ctx, e.Name(), func(ctx context.Context) error {
		if _, err := client.SendEmail(ctx, input); err != nil {
			return classifySESError(err)
		}
		return nil
	})
}

func (e *Email) api(ctx context.Context) (sesAPI, error) {
	e.once.Do(func() {
		if e.client != nil {
			return
		}
		var opts []func(*awsconfig.LoadOptions) error
		if e.region != "" {
			opts = append(opts, awsconfig.WithRegion(e.region))
		}
		cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			e.initErr = err
			return
		}
		e.client = sesv2.NewFromConfig(cfg)
	})
	if e.initErr != nil {
		return nil, e.initErr
	}
	return e.client, nil
}

// classifySESError keeps throttling and server-side faults retryable;
// validation and auth failures are permanent.
func classifySESError(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		// No service response at all: treat as a network-level failure.
		return transient(err)
	}
	switch apiErr.ErrorCode() {
	case "TooManyRequestsException", "ThrottlingException", "LimitExceededException", "ServiceUnavailableException", "InternalServiceErrorException":
		return transient(err)
	}
	if apiErr.ErrorFault() == smithy.FaultServer {
		return transient(err)
	}
	return err
}

func utf8Content(data string) *types.Content {
	return &types.Content{Data: aws.String(data), Charset: aws.String("UTF-8")}
}
