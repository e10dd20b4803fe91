package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"protocol-review-api/models"
	"protocol-review-api/utils"

	"go.uber.org/zap"
)

// Notifier is told about every committed transition. Implementations must not
// fail the transition; delivery problems are theirs to log.
type Notifier interface {
	TransitionCommitted(ctx context.Context, app models.ProtocolApplication, event models.ReviewEvent)
}

// detachedContext keeps request values but drops cancellation.
func detachedContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}

type nopNotifier struct{}

func (nopNotifier) TransitionCommitted(context.Context, models.ProtocolApplication, models.ReviewEvent) {}

// MailSender delivers an HTML message.
type MailSender interface {
	SendMail(to []string, subject, html string) error
}

// RecipientLookup resolves the personnel record of an investigator.
type RecipientLookup interface {
	InvestigatorContact(ctx context.Context, userID int) (models.User, error)
}

// MailNotifier e-mails the investigator when a decision needs their attention.
type MailNotifier struct {
	mailer     MailSender
	recipients RecipientLookup
	log        *zap.SugaredLogger
}

// NewMailNotifier returns a notifier sending through mailer.
func NewMailNotifier(mailer MailSender, recipients RecipientLookup, log *zap.SugaredLogger) *MailNotifier {
	return &MailNotifier{mailer: mailer, recipients: recipients, log: log}
}

var notifyStatuses = map[models.ProtocolStatus]string{
	models.StatusRevisionsRequested: "Revisions requested",
	models.StatusApproved:           "Protocol approved",
	models.StatusRejected:           "Protocol not approved",
}

func (n *MailNotifier) TransitionCommitted(ctx context.Context, app models.ProtocolApplication, event models.ReviewEvent) {
	if event.ActorType != models.ActorOffice || event.FromStatus == event.ToStatus {
		return
	}
	headline, ok := notifyStatuses[event.ToStatus]
	if !ok {
		return
	}

	recipient, err := n.recipients.InvestigatorContact(ctx, app.InvestigatorID)
	if err != nil || strings.TrimSpace(recipient.Email) == "" {
		n.log.Warnw("notification skipped: investigator address unavailable",
			"application_id", app.ID,
			"investigator_id", app.InvestigatorID,
			"error", err,
		)
		return
	}

	subject := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(app.ProtocolType)), headline, app.Title)
	if err := n.mailer.SendMail([]string{recipient.Email}, subject, renderDecisionMail(recipient, app, event, headline)); err != nil {
		n.log.Errorw("failed to send decision notification",
			"application_id", app.ID,
			"event_uid", event.EventUID,
			"error", err,
		)
		return
	}
	n.log.Infow("decision notification sent", "application_id", app.ID, "status", event.ToStatus)
}

func renderDecisionMail(recipient models.User, app models.ProtocolApplication, event models.ReviewEvent, headline string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2>", html.EscapeString(headline))
	if name := strings.TrimSpace(recipient.FullName()); name != "" {
		fmt.Fprintf(&b, "<p>Dear %s,</p>", html.EscapeString(name))
	}
	fmt.Fprintf(&b, "<p>Protocol: <strong>%s</strong></p>", html.EscapeString(app.Title))
	if app.RegistrationNumber != nil {
		fmt.Fprintf(&b, "<p>Registration number: %s</p>", html.EscapeString(*app.RegistrationNumber))
	}
	if app.ExpirationDate != nil {
		fmt.Fprintf(&b, "<p>Approval expires on %s (%s).</p>",
			app.ExpirationDate.Format("2006-01-02"), utils.FormatThaiDate(*app.ExpirationDate))
	}
	if event.Comment != "" {
		fmt.Fprintf(&b, "<p>Reviewer comment:</p><blockquote>%s</blockquote>", html.EscapeString(event.Comment))
	}
	return b.String()
}
