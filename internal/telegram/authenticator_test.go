package telegram

import (
	"context"
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPrompt struct {
	message string
	secret  bool
}

type fakePrompter struct {
	answers []string
	asked   []recordedPrompt
}

func (f *fakePrompter) Input(message string, secret bool) (string, error) {
	f.asked = append(f.asked, recordedPrompt{message: message, secret: secret})
	answer := f.answers[0]
	f.answers = f.answers[1:]
	return answer, nil
}

func TestAuthenticator_PrefersConfiguredValues(t *testing.T) {
	prompter := &fakePrompter{}
	a := NewAuthenticator("+15550100", "hunter2", prompter)
	ctx := context.Background()

	phone, err := a.Phone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", phone)

	password, err := a.Password(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", password)

	assert.Empty(t, prompter.asked)
}

func TestAuthenticator_PromptsForMissingValues(t *testing.T) {
	prompter := &fakePrompter{answers: []string{"+15550100", "2fa-pass", "12345"}}
	a := NewAuthenticator("", "", prompter)
	ctx := context.Background()

	phone, err := a.Phone(ctx)
	require.NoError(t, err)
	assert.Equal(t, "+15550100", phone)

	password, err := a.Password(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2fa-pass", password)

	code, err := a.Code(ctx, &tg.AuthSentCode{Type: &tg.AuthSentCodeTypeApp{Length: 5}})
	require.NoError(t, err)
	assert.Equal(t, "12345", code)

	require.Len(t, prompter.asked, 3)
	assert.False(t, prompter.asked[0].secret)
	assert.True(t, prompter.asked[1].secret, "password prompt must hide input")
	assert.Contains(t, prompter.asked[2].message, "Telegram app")
}

func TestAuthenticator_RefusesSignUp(t *testing.T) {
	a := NewAuthenticator("+15550100", "", &fakePrompter{})

	_, err := a.SignUp(context.Background())
	assert.ErrorIs(t, err, ErrNotRegistered)

	err = a.AcceptTermsOfService(context.Background(), tg.HelpTermsOfService{})
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{APIHash: "hash", SessionPath: "s.json"})
	assert.ErrorContains(t, err, "api id and api hash are required")

	_, err = New(Options{APIID: 1, APIHash: "hash"})
	assert.ErrorContains(t, err, "session path is required")
}

func TestNew_CreatesSessionDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/sessions"
	s, err := New(Options{APIID: 1, APIHash: "hash", SessionPath: dir + "/session.json"})
	require.NoError(t, err)
	assert.NotNil(t, s)
	assert.DirExists(t, dir)
}
