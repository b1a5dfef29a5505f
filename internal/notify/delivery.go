package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/oncoregistry/internal/models"
	"github.com/oncoregistry/internal/report"
	"gopkg.in/gomail.v2"
)

// EmailDeliverer sends a generated report to one recipient with the artifact
// attached and the executive summary in the body. It implements
// report.Deliverer.
type EmailDeliverer struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailDeliverer(smtpHost string, smtpPort int, from, password string) *EmailDeliverer {
	return &EmailDeliverer{
		dialer: gomail.NewDialer(smtpHost, smtpPort, from, password),
		from:   from,
	}
}

func (d *EmailDeliverer) Deliver(ctx context.Context, rcpt *report.ResolvedRecipient, schedule *models.ScheduledReport, art *report.Artifact, summary *report.ExecutiveSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.from)
	m.SetAddressHeader("To", rcpt.Email, rcpt.Name)
	m.SetHeader("Subject", fmt.Sprintf("Scheduled Report: %s", schedule.Name))
	m.SetBody("text/plain", summaryBody(rcpt, summary))
	m.Attach(art.FilePath)

	return d.dialer.DialAndSend(m)
}

func summaryBody(rcpt *report.ResolvedRecipient, summary *report.ExecutiveSummary) string {
	body := fmt.Sprintf("Hello %s,\n\nPlease find the attached report.\n\n%s\nPeriod: %s\nGenerated: %s\n\nKey Metrics:\n",
		rcpt.Name, summary.Title, summary.Period, summary.GeneratedAt.Format(time.RFC3339))
	for _, metric := range summary.KeyMetrics {
		body += fmt.Sprintf("  %s: %.0f\n", metric.Name, metric.Value)
	}
	if len(summary.Recommendations) > 0 {
		body += "\nRecommendations:\n"
		for _, rec := range summary.Recommendations {
			body += fmt.Sprintf("  - %s\n", rec)
		}
	}
	return body
}
