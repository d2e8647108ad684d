// Package notify emails customers through Amazon SES v2.
package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"penny/internal/providers"
	"penny/internal/verification"
)

const ProviderID = "ses"

type sendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier implements verification.Notifier with plain-text email.
type SESNotifier struct {
	client sendEmailAPI
	sender string
}

func NewSESNotifier(client sendEmailAPI, sender string) *SESNotifier {
	return &SESNotifier{client: client, sender: sender}
}

func (n *SESNotifier) Send(ctx context.Context, msg verification.Notification) error {
	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	return providers.FromAWS(ProviderID, err)
}
