package utils

import (
	"fmt"
	"log"
	"strings"

	"comply/config"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendEmail sends one HTML email through Sendgrid
func SendEmail(toEmail, toName, subject, htmlBody string) error {
	from := mail.NewEmail("Comply", config.AppConfig.EmailSender)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, "", getEmailTemplate(subject, htmlBody))

	client := sendgrid.NewSendClient(config.AppConfig.SendgridApiKey)
	resp, err := client.Send(message)
	if err != nil {
		log.Printf("[EMAIL] Error sending %q to %s: %v", subject, toEmail, err)
		return err
	}
	if resp.StatusCode >= 400 {
		log.Printf("[EMAIL] Sendgrid rejected %q to %s: %d %s", subject, toEmail, resp.StatusCode, resp.Body)
		return fmt.Errorf("sendgrid responded %d", resp.StatusCode)
	}
	return nil
}

// HTML wrapper shared by every outbound email
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; box-shadow: 0 4px 15px rgba(0,0,0,0.05); }
			.header { background-color: #0B3D5C; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1A2B3C; line-height: 1.6; }
			.content h2 { color: #0B3D5C; margin-top: 0; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; border-top: 1px solid #E0E0E0; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #3D8BB9; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>COMPLY</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				&copy; 2026 Comply. All rights reserved.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}

// --- Triggers ---

// SendNewAssignmentEmail sends one batched notification listing everything
// newly assigned to the clinician in this request
func SendNewAssignmentEmail(email, name string, itemTitles []string) {
	subject := "New competencies assigned to you"

	items := make([]string, len(itemTitles))
	for i, title := range itemTitles {
		items[i] = "<li>" + title + "</li>"
	}

	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>The following competencies have been assigned to you:</p>
		<ul>%s</ul>
		<div class="info-box">
			Sign in to your dashboard to review due dates and get started.
		</div>
	`, name, strings.Join(items, ""))

	go SendEmail(email, name, subject, body)
}

// SendReassignmentEmail notifies a clinician that an expiring competency was
// reissued. Only the user-facing reassign path sends this; the scheduled bulk
// path stays silent.
func SendReassignmentEmail(email, name, itemTitle string) {
	subject := "A competency was reassigned to you"
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p><strong>%s</strong> has been reassigned to you and must be completed again.</p>
		<p>Check your dashboard for the new due date.</p>
	`, name, itemTitle)

	go SendEmail(email, name, subject, body)
}
