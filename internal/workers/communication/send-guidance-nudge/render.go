// internal/workers/communication/send-guidance-nudge/render.go
package sendguidancenudge

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"unicode/utf8"

	"visa-workers/internal/guidance"
)

// maxSMSRunes keeps a nudge within two concatenated SMS segments.
const maxSMSRunes = 300

var emailTemplate = template.Must(template.New("nudge").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2933;">
  <p style="text-transform: uppercase; font-size: 12px; color: #616e7c;">{{.Category}}</p>
  <h1 style="font-size: 20px;">{{.Title}}</h1>
  <p>{{.Description}}</p>
  {{- if .HelpText}}
  <p style="font-style: italic;">{{.HelpText}}</p>
  {{- end}}
  {{- range .Actions}}
  <p><a href="{{.Href}}">{{.Label}}</a></p>
  {{- end}}
</body>
</html>
`))

type message struct {
	Subject string
	Text    string
	HTML    string
	SMS     string
}

type emailView struct {
	Category    string
	Title       string
	Description string
	HelpText    string
	Actions     []guidance.Action
}

func render(state *guidance.State, baseURL string) (message, error) {
	view := emailView{
		Category:    state.Category,
		Title:       state.Title,
		Description: state.Description,
		HelpText:    state.HelpText,
	}
	for _, a := range []*guidance.Action{state.PrimaryAction, state.SecondaryAction} {
		if a != nil {
			view.Actions = append(view.Actions, guidance.Action{Label: a.Label, Href: absolute(baseURL, a.Href)})
		}
	}

	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, view); err != nil {
		return message{}, fmt.Errorf("render email: %w", err)
	}

	var text strings.Builder
	text.WriteString(state.Title)
	text.WriteString("\n\n")
	text.WriteString(state.Description)
	if state.HelpText != "" {
		text.WriteString("\n\n")
		text.WriteString(state.HelpText)
	}
	for _, a := range view.Actions {
		fmt.Fprintf(&text, "\n\n%s: %s", a.Label, a.Href)
	}

	return message{
		Subject: state.Title,
		Text:    text.String(),
		HTML:    html.String(),
		SMS:     smsBody(state.Title, state.Description, view.Actions),
	}, nil
}

func smsBody(title, description string, actions []guidance.Action) string {
	link := ""
	if len(actions) > 0 {
		link = " " + actions[0].Href
	}
	body := title + ": " + description
	budget := maxSMSRunes - utf8.RuneCountInString(link)
	if budget < maxSMSRunes/2 {
		link, budget = "", maxSMSRunes
	}
	if utf8.RuneCountInString(body) > budget {
		runes := []rune(body)
		body = strings.TrimSpace(string(runes[:budget-1])) + "…"
	}
	return body + link
}

func absolute(baseURL, href string) string {
	if baseURL == "" || !strings.HasPrefix(href, "/") {
		return href
	}
	return baseURL + href
}
