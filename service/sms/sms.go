package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/propella-labs/go-propella/env"
)

const twilioAPIBase = "https://api.twilio.com"

// ErrInvalidPhoneNumber is returned when a number cannot be normalized to E.164
type ErrInvalidPhoneNumber struct {
	PhoneNumber string
}

func (e ErrInvalidPhoneNumber) Error() string {
	return fmt.Sprintf("invalid phone number format: %s", e.PhoneNumber)
}

// Sender delivers short messages through Twilio's REST API. Delivery is
// best-effort from the callers' perspective; they log failures and fall back to
// surfacing the message elsewhere.
type Sender struct {
	client     *http.Client
	apiBase    string
	accountSID string
	authToken  string
	fromNumber string
}

// NewSender creates a sender with credentials from the environment
func NewSender(client *http.Client) *Sender {
	return &Sender{
		client:     client,
		apiBase:    twilioAPIBase,
		accountSID: env.GetString("TWILIO_ACCOUNT_SID"),
		authToken:  env.GetString("TWILIO_AUTH_TOKEN"),
		fromNumber: env.GetString("TWILIO_PHONE_NUMBER"),
	}
}

// Configured reports whether Twilio credentials are present
func (s *Sender) Configured() bool {
	return s.accountSID != "" && s.authToken != "" && s.fromNumber != ""
}

// Send delivers the message to the given phone number, normalizing it to E.164
// first. A non-2xx response surfaces Twilio's error body in the returned error.
func (s *Sender) Send(ctx context.Context, toNumber, message string) error {
	formatted, err := formatE164(toNumber)
	if err != nil {
		return err
	}

	form := url.Values{
		"To":   {formatted},
		"From": {s.fromNumber},
		"Body": {message},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.apiBase, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending SMS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twilio API error: %s", string(body))
	}

	return nil
}

// formatE164 normalizes numbers the way the rest of the system accepts them:
// already-prefixed numbers pass through, bare 10-digit numbers get the India
// country code.
func formatE164(number string) (string, error) {
	switch {
	case strings.HasPrefix(number, "+"):
		return number, nil
	case len(number) == 10:
		return "+91" + number, nil
	default:
		return "", ErrInvalidPhoneNumber{PhoneNumber: number}
	}
}
