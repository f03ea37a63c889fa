package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueAlertSender publishes crisis alerts to an SQS queue for downstream
// paging.
type QueueAlertSender struct {
	client   sqsAPI
	queueURL string
}

func NewQueueAlertSender(client *sqs.Client, queueURL string) *QueueAlertSender {
	if client == nil {
		panic("notify: SQS client cannot be nil")
	}
	return newQueueAlertSender(client, queueURL)
}

func newQueueAlertSender(client sqsAPI, queueURL string) *QueueAlertSender {
	if queueURL == "" {
		panic("notify: SQS queueURL cannot be empty")
	}
	return &QueueAlertSender{client: client, queueURL: queueURL}
}

func (q *QueueAlertSender) SendCrisisAlert(ctx context.Context, alert CrisisAlert) (bool, error) {
	body, err := json.Marshal(alert)
	if err != nil {
		return false, fmt.Errorf("notify: encode alert: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return false, fmt.Errorf("notify: failed to send SQS message: %w", err)
	}
	return true, nil
}

// AlertSender is implemented by every crisis alert channel.
type AlertSender interface {
	SendCrisisAlert(ctx context.Context, alert CrisisAlert) (bool, error)
}

// MirroredAlertSender sends through a primary channel and copies the alert to
// a mirror. Only the primary result is reported.
type MirroredAlertSender struct {
	primary AlertSender
	mirror  AlertSender
	logger  *logging.Logger
}

func NewMirroredAlertSender(primary, mirror AlertSender, logger *logging.Logger) *MirroredAlertSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &MirroredAlertSender{primary: primary, mirror: mirror, logger: logger}
}

func (m *MirroredAlertSender) SendCrisisAlert(ctx context.Context, alert CrisisAlert) (bool, error) {
	if m.mirror != nil {
		if _, err := m.mirror.SendCrisisAlert(ctx, alert); err != nil {
			m.logger.Warn("crisis alert mirror failed", "user_id", alert.Profile.ID, "error", err)
		}
	}
	return m.primary.SendCrisisAlert(ctx, alert)
}
