package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"rozgar-signup/internal/models"
)

// Publisher is the slice of the SNS API the SMS sender needs.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSClient struct {
	client   Publisher
	senderID string
}

func NewSNSClient(ctx context.Context, region, senderID string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), senderID: senderID}, nil
}

// NewSNSClientWith wraps an existing publisher.
func NewSNSClientWith(p Publisher, senderID string) *SNSClient {
	return &SNSClient{client: p, senderID: senderID}
}

// SendSMS delivers a transactional text message and returns its message id.
func (s *SNSClient) SendSMS(ctx context.Context, msg models.SMSMessage) (string, error) {
	sender := msg.SenderID
	if sender == "" {
		sender = s.senderID
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    awssdk.String("String"),
			StringValue: awssdk.String("Transactional"),
		},
	}
	if sender != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    awssdk.String("String"),
			StringValue: awssdk.String(sender),
		}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       awssdk.String(E164(msg.PhoneNumber)),
		Message:           awssdk.String(msg.Message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("sns publish failed: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}

// E164 normalizes an Indian mobile number to +91XXXXXXXXXX. Numbers with an
// explicit country code are kept.
func E164(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if phone[i] >= '0' && phone[i] <= '9' {
			digits = append(digits, phone[i])
		}
	}
	switch {
	case len(phone) > 0 && phone[0] == '+':
		return "+" + string(digits)
	case len(digits) == 10:
		return "+91" + string(digits)
	case len(digits) == 11 && digits[0] == '0':
		return "+91" + string(digits[1:])
	default:
		return "+" + string(digits)
	}
}
