package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/report"
	"github.com/slack-go/slack"
	"gopkg.in/gomail.v2"
)

type Config struct {
	SlackToken     string
	SlackChannel   string
	SMTPHost       string
	SMTPPort       int
	EmailFrom      string
	EmailPassword  string
	AlertReceivers []string
}

// Dispatcher fans threshold alerts out to Slack and email. It implements
// report.AlertDispatcher.
type Dispatcher struct {
	slackClient *slack.Client
	emailDialer *gomail.Dialer
	config      *Config
}

func NewDispatcher(config *Config) *Dispatcher {
	return &Dispatcher{
		slackClient: slack.New(config.SlackToken),
		emailDialer: gomail.NewDialer(config.SMTPHost, config.SMTPPort, config.EmailFrom, config.EmailPassword),
		config:      config,
	}
}

// Dispatch sends every alert to all configured channels. The first channel
// failure is returned; the caller treats dispatch as best-effort.
func (d *Dispatcher) Dispatch(ctx context.Context, schedule *models.ScheduledReport, alerts []report.ThresholdAlert) error {
	if d.config.SlackChannel != "" {
		if err := d.sendSlack(ctx, schedule, alerts); err != nil {
			return fmt.Errorf("failed to send slack alert: %v", err)
		}
	}
	if len(d.config.AlertReceivers) > 0 {
		if err := d.sendEmail(schedule, alerts); err != nil {
			return fmt.Errorf("failed to send email alert: %v", err)
		}
	}
	return nil
}

func (d *Dispatcher) sendSlack(ctx context.Context, schedule *models.ScheduledReport, alerts []report.ThresholdAlert) error {
	attachments := make([]slack.Attachment, 0, len(alerts))
	for _, alert := range alerts {
		attachments = append(attachments, slack.Attachment{
			Color: severityColor(alert.Severity),
			Title: fmt.Sprintf("Report Alert: %s", schedule.Name),
			Text:  alert.Message,
			Fields: []slack.AttachmentField{
				{
					Title: "Metric",
					Value: alert.MetricName,
					Short: true,
				},
				{
					Title: "Severity",
					Value: string(alert.Severity),
					Short: true,
				},
				{
					Title: "Current Value",
					Value: fmt.Sprintf("%.2f", alert.CurrentValue),
					Short: true,
				},
				{
					Title: "Threshold",
					Value: fmt.Sprintf("%.2f", alert.ThresholdValue),
					Short: true,
				},
			},
			Footer: "Registry Report Alerts",
			Ts:     json.Number(strconv.FormatInt(time.Now().Unix(), 10)),
		})
	}

	_, _, err := d.slackClient.PostMessageContext(
		ctx,
		d.config.SlackChannel,
		slack.MsgOptionAttachments(attachments...),
	)
	return err
}

func (d *Dispatcher) sendEmail(schedule *models.ScheduledReport, alerts []report.ThresholdAlert) error {
	m := gomail.NewMessage()
	m.SetHeader("From", d.config.EmailFrom)
	m.SetHeader("To", d.config.AlertReceivers...)
	m.SetHeader("Subject", fmt.Sprintf("Report Alert: %s (%d threshold violations)", schedule.Name, len(alerts)))

	body := fmt.Sprintf("Scheduled report: %s\nTime: %s\n\n", schedule.Name, time.Now().Format(time.RFC3339))
	for _, alert := range alerts {
		body += fmt.Sprintf("[%s] %s\nMetric: %s\nCurrent Value: %.2f\nThreshold: %.2f\n\n",
			alert.Severity, alert.Message, alert.MetricName, alert.CurrentValue, alert.ThresholdValue)
	}
	m.SetBody("text/plain", body)

	return d.emailDialer.DialAndSend(m)
}

func severityColor(severity models.AlertSeverity) string {
	switch severity {
	case models.SeverityCritical:
		return "danger"
	case models.SeverityWarning:
		return "warning"
	default:
		return "good"
	}
}
