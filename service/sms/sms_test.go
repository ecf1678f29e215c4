package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSender(apiBase string) *Sender {
	return &Sender{
		client:     http.DefaultClient,
		apiBase:    apiBase,
		accountSID: "AC123",
		authToken:  "secret",
		fromNumber: "+15005550006",
	}
}

func TestSendPostsTwilioForm(t *testing.T) {
	var gotPath, gotTo, gotFrom, gotBody string
	var gotUser, gotPass string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotTo = r.PostFormValue("To")
		gotFrom = r.PostFormValue("From")
		gotBody = r.PostFormValue("Body")
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	sender := newTestSender(ts.URL)
	err := sender.Send(context.Background(), "9876543210", "Your code is 123456")
	require.NoError(t, err)

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "secret", gotPass)
	assert.Equal(t, "+919876543210", gotTo)
	assert.Equal(t, "+15005550006", gotFrom)
	assert.Equal(t, "Your code is 123456", gotBody)
}

func TestSendSurfacesTwilioError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code": 20003, "message": "Authenticate"}`))
	}))
	defer ts.Close()

	sender := newTestSender(ts.URL)
	err := sender.Send(context.Background(), "+919876543210", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "twilio API error")
	assert.Contains(t, err.Error(), "20003")
}

func TestSendRejectsInvalidNumber(t *testing.T) {
	sender := newTestSender("http://unused")

	err := sender.Send(context.Background(), "12345", "hello")
	require.Error(t, err)
	assert.IsType(t, ErrInvalidPhoneNumber{}, err)
}

func TestFormatE164(t *testing.T) {
	formatted, err := formatE164("9876543210")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", formatted)

	formatted, err = formatE164("+14155550100")
	require.NoError(t, err)
	assert.Equal(t, "+14155550100", formatted)

	_, err = formatE164("98765")
	assert.Error(t, err)
}

func TestConfigured(t *testing.T) {
	assert.True(t, newTestSender("http://unused").Configured())

	sender := &Sender{client: http.DefaultClient}
	assert.False(t, sender.Configured())
}
