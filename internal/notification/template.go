package notification

import (
	"bytes"
	"html/template"
)

// SubjectPrefix is prepended to every outgoing email subject.
const SubjectPrefix = "[formrelay] "

// emailTmpl wraps the plain WhatsApp text in a minimal HTML layout.
// html/template escapes both fields.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:24px;background-color:#f4f4f5;font-family:Arial,sans-serif;">
  <div style="max-width:600px;margin:0 auto;background-color:#ffffff;border-radius:8px;">
    <div style="background-color:#075e54;color:#ffffff;padding:16px 24px;border-radius:8px 8px 0 0;">
      <strong>{{.Subject}}</strong>
    </div>
    <pre style="margin:0;padding:24px;font-size:14px;line-height:1.6;color:#1f2937;
                white-space:pre-wrap;word-break:break-word;font-family:inherit;">{{.Body}}</pre>
    <div style="padding:12px 24px;font-size:12px;color:#9ca3af;border-top:1px solid #e5e7eb;">
      Copy of a WhatsApp notification sent by formrelay.
    </div>
  </div>
</body>
</html>
`))

func buildSubject(subject string) string {
	return SubjectPrefix + subject
}

func buildEmailHTML(subject, body string) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, struct{ Subject, Body string }{subject, body}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
