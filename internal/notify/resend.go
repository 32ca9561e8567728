package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
)

const DefaultResendEndpoint = "https://api.resend.com/emails"

var emailTemplate = template.Must(template.New("viewed").Parse(`<h2>Your secret was viewed</h2>
<p>The following secret has been opened:</p>
<ul>
  <li><strong>Secret ID:</strong> {{.SecretID}}</li>
  <li><strong>Browser:</strong> {{.UserAgent}}</li>
  <li><strong>Location:</strong> {{.Location}}</li>
</ul>
`))

// ResendSender emails the notification through the Resend HTTP API.
type ResendSender struct {
	APIKey   string
	From     string
	Endpoint string
	Client   *http.Client
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (s ResendSender) Send(ctx context.Context, n Notification) error {
	if s.APIKey == "" {
		return errors.New("resend api key is not configured")
	}
	if n.NotifyEmail == "" {
		return errors.New("notification has no recipient")
	}
	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, n); err != nil {
		return err
	}
	body, err := json.Marshal(resendEmail{
		From:    s.From,
		To:      []string{n.NotifyEmail},
		Subject: "Your secret was viewed",
		HTML:    html.String(),
	})
	if err != nil {
		return err
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultResendEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	return do(s.Client, req)
}
