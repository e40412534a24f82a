package telegram

import (
	"context"
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
)

// ErrNotRegistered is returned when the phone number has no Telegram account
var ErrNotRegistered = errors.New("account not registered: sign up with an official client first")

// Prompter asks the user for login details
type Prompter interface {
	Input(message string, secret bool) (string, error)
}

// SurveyPrompter prompts on the terminal
type SurveyPrompter struct{}

func (SurveyPrompter) Input(message string, secret bool) (string, error) {
	var answer string
	var prompt survey.Prompt = &survey.Input{Message: message}
	if secret {
		prompt = &survey.Password{Message: message}
	}
	if err := survey.AskOne(prompt, &answer, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// Authenticator supplies login details, preferring configured values over prompts
type Authenticator struct {
	phone    string
	password string
	prompt   Prompter
}

var _ auth.UserAuthenticator = (*Authenticator)(nil)

// NewAuthenticator uses phone and password when set and prompts for the rest
func NewAuthenticator(phone, password string, prompt Prompter) *Authenticator {
	if prompt == nil {
		prompt = SurveyPrompter{}
	}
	return &Authenticator{phone: phone, password: password, prompt: prompt}
}

func (a *Authenticator) Phone(_ context.Context) (string, error) {
	if a.phone != "" {
		return a.phone, nil
	}
	return a.prompt.Input("Phone number (international format):", false)
}

func (a *Authenticator) Password(_ context.Context) (string, error) {
	if a.password != "" {
		return a.password, nil
	}
	return a.prompt.Input("Two-step verification password:", true)
}

func (a *Authenticator) Code(_ context.Context, sentCode *tg.AuthSentCode) (string, error) {
	message := "Login code:"
	if sentCode != nil {
		if _, ok := sentCode.Type.(*tg.AuthSentCodeTypeApp); ok {
			message = "Login code (sent to your Telegram app):"
		}
	}
	return a.prompt.Input(message, false)
}

func (a *Authenticator) AcceptTermsOfService(_ context.Context, _ tg.HelpTermsOfService) error {
	return ErrNotRegistered
}

func (a *Authenticator) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, ErrNotRegistered
}
