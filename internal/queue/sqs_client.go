package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

const defaultSQSRegion = "us-east-1"

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSClient sends queue messages to AWS SQS.
type SQSClient struct {
	client   SQSAPI
	queueURL string
}

// NewSQSAPI loads AWS config for region, defaulting to us-east-1.
func NewSQSAPI(ctx context.Context, region string) (*sqs.Client, error) {
	if strings.TrimSpace(region) == "" {
		region = defaultSQSRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

// NewSQSClient constructs an SQS-backed queue client.
func NewSQSClient(client SQSAPI, queueURL string) (*SQSClient, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, fmt.Errorf("RA_SQS_QUEUE_URL is required")
	}
	return &SQSClient{client: client, queueURL: queueURL}, nil
}

// Send delivers a message to the configured SQS queue.
func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

// SQSConsumer long-polls an SQS queue.
type SQSConsumer struct {
	Client            SQSAPI
	QueueURL          string
	VisibilitySeconds int32
	WaitSeconds       int32
	MaxMessages       int32
}

// Receive returns up to MaxMessages deliveries. Ack deletes the message.
func (s *SQSConsumer) Receive(ctx context.Context) ([]Delivery, error) {
	maxMessages := s.MaxMessages
	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}
	wait := s.WaitSeconds
	if wait <= 0 {
		wait = 20
	}
	resp, err := s.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.QueueURL),
		MaxNumberOfMessages: maxMessages,
		WaitTimeSeconds:     wait,
		VisibilityTimeout:   s.VisibilitySeconds,
		AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive message: %w", err)
	}

	out := make([]Delivery, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		receipt := aws.ToString(m.ReceiptHandle)
		out = append(out, Delivery{
			ID:           aws.ToString(m.MessageId),
			Body:         aws.ToString(m.Body),
			ReceiveCount: receiveCount(m),
			Ack: func(ctx context.Context) error {
				if receipt == "" {
					return fmt.Errorf("missing receipt handle")
				}
				_, err := s.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
					QueueUrl:      aws.String(s.QueueURL),
					ReceiptHandle: aws.String(receipt),
				})
				if err != nil {
					return fmt.Errorf("sqs delete message: %w", err)
				}
				return nil
			},
		})
	}
	return out, nil
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

var (
	_ Client   = (*SQSClient)(nil)
	_ Consumer = (*SQSConsumer)(nil)
)
