package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/namdevyakhya-17/psycare/internal/config"
	"github.com/namdevyakhya-17/psycare/internal/crisis"
	"github.com/namdevyakhya-17/psycare/internal/notify"
	"github.com/namdevyakhya-17/psycare/pkg/logging"
)

// BuildEmailSender picks the SOS mail provider from EMAIL_PROVIDER
// (sendgrid, ses, stub or auto). It returns the provider used and, when the
// stub was chosen, the reason.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (notify.EmailSender, string, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub", "missing config"
	}

	sendgrid := func() notify.EmailSender {
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
			return nil
		}
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}
	ses := func() notify.EmailSender {
		if strings.TrimSpace(cfg.SESFromEmail) == "" {
			return nil
		}
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	}

	switch cfg.EmailProvider {
	case "sendgrid":
		if s := sendgrid(); s != nil {
			return s, "sendgrid", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "SENDGRID_API_KEY not set"
	case "ses":
		if s := ses(); s != nil {
			return s, "ses", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "SES_FROM_EMAIL not set"
	case "stub":
		return notify.NewStubEmailSender(logger), "stub", "EMAIL_PROVIDER=stub"
	default:
		if s := sendgrid(); s != nil {
			return s, "sendgrid", ""
		}
		if s := ses(); s != nil {
			return s, "ses", ""
		}
		return notify.NewStubEmailSender(logger), "stub", "no email provider credentials"
	}
}

// BuildAlertSender wraps the SOS mailer, mirroring alerts to SQS when
// CRISIS_ALERT_QUEUE_URL is set.
func BuildAlertSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) crisis.AlertSender {
	if logger == nil {
		logger = logging.Default()
	}
	sender, provider, reason := BuildEmailSender(cfg, awsCfg, logger)
	if reason != "" {
		logger.Warn("sos email disabled", "provider", provider, "reason", reason)
	} else {
		logger.Info("sos email configured", "provider", provider)
	}

	to := ""
	if cfg != nil {
		to = cfg.SOSEmailTo
	}
	mailer := notify.NewSOSMailer(sender, to, logger)
	if cfg == nil || strings.TrimSpace(cfg.CrisisAlertQueueURL) == "" {
		return mailer
	}
	logger.Info("crisis alerts mirrored to queue")
	queue := notify.NewQueueAlertSender(sqs.NewFromConfig(awsCfg), cfg.CrisisAlertQueueURL)
	return notify.NewMirroredAlertSender(mailer, queue, logger)
}
