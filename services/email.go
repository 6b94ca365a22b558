package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"case_track_go/config"
	"case_track_go/models"

	"github.com/resend/resend-go/v2"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmail sends an email using the Resend API. In test mode the email is
// logged instead of sent.
func SendEmail(cfg *config.Config, email *Email) error {
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	fromAddress := fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom)

	params := &resend.SendEmailRequest{
		From:    fromAddress,
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("Email sent successfully via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// SendEmailAsync sends an email in a goroutine so handlers never block on the
// Resend API
func SendEmailAsync(cfg *config.Config, email *Email) {
	emailCopy := &Email{
		To:       append([]string{}, email.To...),
		Subject:  email.Subject,
		HTMLBody: email.HTMLBody,
		TextBody: email.TextBody,
	}

	go func(cfg *config.Config, email *Email) {
		if err := SendEmail(cfg, email); err != nil {
			log.Printf("Error sending async email: %v", err)
		}
	}(cfg, emailCopy)
}

func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode - not actually sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// BuildClosureNoticeEmail creates the notification sent to the supervision
// mailbox when a case file is closed
func BuildClosureNoticeEmail(to string, caseFile *models.CaseFile, closedBy string) *Email {
	subject := fmt.Sprintf("Case file #%d closed (%s %s)", caseFile.ID, caseFile.DocumentType, caseFile.DocumentNumber)

	closedAt := time.Now().Format("2006-01-02 15:04")
	if caseFile.ClosedAt != nil {
		closedAt = caseFile.ClosedAt.Format("2006-01-02 15:04")
	}

	text := fmt.Sprintf(
		"Case file #%d has been closed.\n\nDocument: %s %s\nReference: %s\nUrgency: %s\nIntake date: %s\nClosed by: %s\nClosed at: %s\n",
		caseFile.ID,
		caseFile.DocumentType, caseFile.DocumentNumber,
		caseFile.Reference,
		caseFile.Urgency,
		caseFile.IntakeDate.Format("2006-01-02"),
		closedBy,
		closedAt,
	)

	html := fmt.Sprintf(
		`<h2>Case file #%d closed</h2>
<table>
<tr><td><strong>Document</strong></td><td>%s %s</td></tr>
<tr><td><strong>Reference</strong></td><td>%s</td></tr>
<tr><td><strong>Urgency</strong></td><td>%s</td></tr>
<tr><td><strong>Intake date</strong></td><td>%s</td></tr>
<tr><td><strong>Closed by</strong></td><td>%s</td></tr>
<tr><td><strong>Closed at</strong></td><td>%s</td></tr>
</table>`,
		caseFile.ID,
		caseFile.DocumentType, caseFile.DocumentNumber,
		caseFile.Reference,
		caseFile.Urgency,
		caseFile.IntakeDate.Format("2006-01-02"),
		closedBy,
		closedAt,
	)

	return &Email{
		To:       []string{to},
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	}
}

// NotifyCaseFileClosed sends the closure notice to the configured supervision
// mailbox, if one is set
func NotifyCaseFileClosed(cfg *config.Config, caseFile *models.CaseFile, closedBy string) {
	if cfg.SupervisionEmail == "" {
		return
	}
	SendEmailAsync(cfg, BuildClosureNoticeEmail(cfg.SupervisionEmail, caseFile, closedBy))
}

// BuildRetirementNoticeEmail creates the notification sent to the supervision
// mailbox when a case file is retired
func BuildRetirementNoticeEmail(to string, caseFile *models.CaseFile, deletedBy string) *Email {
	subject := fmt.Sprintf("Case file #%d retired (%s %s)", caseFile.ID, caseFile.DocumentType, caseFile.DocumentNumber)

	text := fmt.Sprintf(
		"Case file #%d has been retired along with its movements.\n\nDocument: %s %s\nReference: %s\nUrgency: %s\nIntake date: %s\nRetired by: %s\nRetired at: %s\n",
		caseFile.ID,
		caseFile.DocumentType, caseFile.DocumentNumber,
		caseFile.Reference,
		caseFile.Urgency,
		caseFile.IntakeDate.Format("2006-01-02"),
		deletedBy,
		time.Now().Format("2006-01-02 15:04"),
	)

	html := fmt.Sprintf(
		`<h2>Case file #%d retired</h2>
<p>The case file and its movements were retired from normal listings.</p>
<table>
<tr><td><strong>Document</strong></td><td>%s %s</td></tr>
<tr><td><strong>Reference</strong></td><td>%s</td></tr>
<tr><td><strong>Urgency</strong></td><td>%s</td></tr>
<tr><td><strong>Intake date</strong></td><td>%s</td></tr>
<tr><td><strong>Retired by</strong></td><td>%s</td></tr>
</table>`,
		caseFile.ID,
		caseFile.DocumentType, caseFile.DocumentNumber,
		caseFile.Reference,
		caseFile.Urgency,
		caseFile.IntakeDate.Format("2006-01-02"),
		deletedBy,
	)

	return &Email{
		To:       []string{to},
		Subject:  subject,
		TextBody: text,
		HTMLBody: html,
	}
}

// NotifyCaseFileRetired sends the retirement notice to the configured
// supervision mailbox, if one is set
func NotifyCaseFileRetired(cfg *config.Config, caseFile *models.CaseFile, deletedBy string) {
	if cfg.SupervisionEmail == "" {
		return
	}
	SendEmailAsync(cfg, BuildRetirementNoticeEmail(cfg.SupervisionEmail, caseFile, deletedBy))
}
