// internal/marketplace/notify/notifier.go

// Package notify delivers best-effort notifications: a notification
// record insert plus email and, for high priority, SMS. Every channel is
// wrapped independently so one failure cannot mask another, and no
// failure ever propagates to the mutation that triggered the dispatch.
package notify

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"talent-marketplace/internal/common/config"
	"talent-marketplace/internal/common/logger"
	"talent-marketplace/internal/common/metrics"
	"talent-marketplace/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

// SESService and SNSService mirror the AWS client calls used here so
// tests can substitute mocks.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Notifier struct {
	config    config.NotificationConfig
	db        *sql.DB
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
	templates map[string]template
}

type template struct {
	Subject string
	Body    string
}

var defaultTemplates = map[string]template{
	models.NotificationTypeNewApplication: {
		Subject: "New application for {{opportunityTitle}}",
		Body:    "A candidate has applied to {{opportunityTitle}}. Review the application from your dashboard.",
	},
	models.NotificationTypeOpportunityClosed: {
		Subject: "{{opportunityTitle}} has been closed",
		Body:    "The opportunity {{opportunityTitle}} you applied to is no longer open. Other opportunities are waiting for you.",
	},
	models.NotificationTypeStatusChanged: {
		Subject: "Your application status changed",
		Body:    "Your application for {{opportunityTitle}} is now {{status}}.",
	},
}

func NewNotifier(cfg config.NotificationConfig, db *sql.DB, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	return &Notifier{
		config:    cfg,
		db:        db,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
		sesClient: sesClient,
		snsClient: snsClient,
		templates: defaultTemplates,
	}
}

// Request describes one best-effort notification dispatch.
type Request struct {
	RecipientID   string
	Type          string
	Priority      string
	OpportunityID string
	ApplicationID string
	Data          map[string]string
}

// Dispatch writes the notification record and pushes the enabled outbound
// channels. It never returns an error: every failure is logged and
// counted, and the caller's primary mutation is unaffected.
func (n *Notifier) Dispatch(ctx context.Context, req Request) {
	tmpl, ok := n.templates[req.Type]
	if !ok {
		n.logger.Warn("unknown notification type, skipping", map[string]interface{}{
			"type": req.Type,
		})
		return
	}

	if req.Priority == "" {
		req.Priority = models.NotificationPriorityNormal
	}

	rec := models.Notification{
		ID:            uuid.New().String(),
		RecipientID:   req.RecipientID,
		Type:          req.Type,
		Title:         render(tmpl.Subject, req.Data),
		Body:          render(tmpl.Body, req.Data),
		Priority:      req.Priority,
		OpportunityID: req.OpportunityID,
		ApplicationID: req.ApplicationID,
		CreatedAt:     time.Now().UTC(),
	}

	// Record insert first: the in-app feed works even when outbound
	// channels are down.
	_, err := n.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, recipient_id, type, title, body, priority,
			opportunity_id, application_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID,
		rec.RecipientID,
		rec.Type,
		rec.Title,
		rec.Body,
		rec.Priority,
		nullable(rec.OpportunityID),
		nullable(rec.ApplicationID),
		rec.CreatedAt,
	)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("record", "failed").Inc()
		n.logger.Error("notification record insert failed", map[string]interface{}{
			"recipientId": req.RecipientID,
			"type":        req.Type,
			"error":       err,
		})
	} else {
		metrics.NotificationsSent.WithLabelValues("record", "sent").Inc()
	}

	email, phone, err := n.recipientContact(ctx, req.RecipientID)
	if err != nil {
		n.logger.Warn("recipient contact lookup failed", map[string]interface{}{
			"recipientId": req.RecipientID,
			"error":       err,
		})
		return
	}

	if n.config.Email.Enabled && email != "" {
		if err := n.sendEmail(ctx, email, rec.Title, rec.Body); err != nil {
			metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
			n.logger.Error("email send failed", map[string]interface{}{
				"recipientId": req.RecipientID,
				"type":        req.Type,
				"error":       err,
			})
		} else {
			metrics.NotificationsSent.WithLabelValues("email", "sent").Inc()
		}
	}

	if n.config.SMS.Enabled && phone != "" && req.Priority == n.config.SMS.PriorityThreshold {
		if err := n.sendSMS(ctx, phone, rec.Body); err != nil {
			metrics.NotificationsSent.WithLabelValues("sms", "failed").Inc()
			n.logger.Error("SMS send failed", map[string]interface{}{
				"recipientId": req.RecipientID,
				"type":        req.Type,
				"error":       err,
			})
		} else {
			metrics.NotificationsSent.WithLabelValues("sms", "sent").Inc()
		}
	}
}

func (n *Notifier) recipientContact(ctx context.Context, recipientID string) (string, string, error) {
	var email, phone sql.NullString
	err := n.db.QueryRowContext(ctx,
		`SELECT email, phone FROM users WHERE id = $1`, recipientID,
	).Scan(&email, &phone)
	if err != nil {
		return "", "", err
	}
	return email.String, phone.String, nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.Email.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, to, message string) error {
	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

func render(tmpl string, data map[string]string) string {
	out := tmpl
	for k, v := range data {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
