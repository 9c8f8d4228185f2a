// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// ContentEmailData is rendered into new-content and broadcast emails.
type ContentEmailData struct {
	SiteName string
	Kind     string // "video", "report" or "" for broadcasts
	Title    string
	Summary  string
	Link     string
	Name     string // recipient
}

// BuildContentEmail renders the new-content / broadcast email.
func BuildContentEmail(to string, data ContentEmailData) Email {
	return Email{
		To:       to,
		Subject:  contentSubject(data),
		TextBody: contentText(data),
		HTMLBody: contentHTML(data),
	}
}

func contentSubject(d ContentEmailData) string {
	switch d.Kind {
	case "video":
		return fmt.Sprintf("%s: novo vídeo - %s", d.SiteName, d.Title)
	case "report":
		return fmt.Sprintf("%s: novo relatório - %s", d.SiteName, d.Title)
	default:
		return fmt.Sprintf("%s: %s", d.SiteName, d.Title)
	}
}

func contentText(d ContentEmailData) string {
	var b strings.Builder
	if d.Name != "" {
		fmt.Fprintf(&b, "Olá, %s!\n\n", d.Name)
	}
	b.WriteString(d.Title + "\n\n")
	if d.Summary != "" {
		b.WriteString(d.Summary + "\n\n")
	}
	if d.Link != "" {
		b.WriteString(d.Link + "\n\n")
	}
	fmt.Fprintf(&b, "Você recebe este email porque se inscreveu em %s.\n", d.SiteName)
	return b.String()
}

var contentTmpl = template.Must(template.New("content").Parse(contentHTMLTemplate))

func contentHTML(d ContentEmailData) string {
	var buf bytes.Buffer
	_ = contentTmpl.Execute(&buf, d)
	return buf.String()
}

const contentHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 28px 32px; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 20px; color: #0f766e;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .Name}}<p style="margin: 0 0 16px; color: #374151;">Olá, {{.Name}}!</p>{{end}}
              <h2 style="margin: 0 0 12px; font-size: 18px; color: #111827;">{{.Title}}</h2>
              {{if .Summary}}<p style="margin: 0 0 24px; color: #374151; line-height: 1.5;">{{.Summary}}</p>{{end}}
              {{if .Link}}<a href="{{.Link}}" style="display: inline-block; padding: 12px 20px; background-color: #0f766e; color: #ffffff; text-decoration: none; border-radius: 6px;">Abrir no portal</a>{{end}}
            </td>
          </tr>
          <tr>
            <td style="padding: 16px 32px; border-top: 1px solid #e5e7eb; font-size: 12px; color: #9ca3af;">
              Você recebe este email porque se inscreveu em {{.SiteName}}.
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`
