package console

import (
	"context"
	"net/url"

	"mmunblock/internal/config"
	"mmunblock/internal/form"
	"mmunblock/internal/logging"
)

// Authenticate establishes an admin session for the configured list.
//
// The admin page is probed first. A page without a login form means the
// session is already authenticated and no credential is sent. A probe answered
// with an error status is fatal only when it carries no login form, since
// some consoles serve the login page with 401 or 403. Otherwise the
// login form is submitted with the credential, every hidden field, and its
// first submit button, and the response must no longer show a login form.
// Every failure is an *AuthError.
func Authenticate(ctx context.Context, cfg *config.Config, opts ...Option) (*Session, error) {
	s, err := NewSession(cfg, opts...)
	if err != nil {
		return nil, &AuthError{Reason: "session setup", Err: err}
	}
	if err := s.login(ctx, cfg.Console.AdminPassword); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) login(ctx context.Context, password string) error {
	target := s.AdminURL()
	probe, probeErr := s.Get(ctx, target)
	if probe == nil {
		return &AuthError{Reason: "admin page rejected the probe", Err: probeErr}
	}
	model, err := form.Parse(probe.Body, s.conv)
	if err != nil {
		if probeErr != nil {
			return &AuthError{Reason: "admin page rejected the probe", Err: probeErr}
		}
		return &AuthError{Reason: "admin page unreadable", Err: err}
	}
	login, ok := loginForm(model, s.conv)
	if !ok && probeErr != nil {
		return &AuthError{Reason: "admin page rejected the probe", Err: probeErr}
	}
	if probeErr != nil {
		s.logger.Debug("login form served with an error status",
			logging.Int("status", probe.Status),
		)
	}
	if !ok {
		s.logger.Info("admin session already authenticated",
			logging.String(logging.FieldEventType, "auth_reused"),
		)
		return nil
	}

	action, err := ResolveAction(probe.URL, login.Action)
	if err != nil {
		return &AuthError{Reason: "login form action", Err: err}
	}
	payload := credentialPayload(login, s.conv.PasswordField, password)

	s.logger.Debug("submitting admin credential",
		logging.String("url", action),
		logging.Int("fields", len(payload)),
	)
	resp, postErr := s.PostForm(ctx, action, payload, probe.Charset)
	if resp == nil {
		return &AuthError{Reason: "login request failed", Err: postErr}
	}
	after, err := form.Parse(resp.Body, s.conv)
	if err != nil {
		if postErr != nil {
			return &AuthError{Reason: "login request failed", Err: postErr}
		}
		return &AuthError{Reason: "post-login page unreadable", Err: err}
	}
	if _, still := loginForm(after, s.conv); still {
		return &AuthError{Reason: "credential rejected"}
	}
	if postErr != nil {
		return &AuthError{Reason: "login request failed", Err: postErr}
	}
	s.logger.Info("admin session established",
		logging.String(logging.FieldEventType, "auth_success"),
	)
	return nil
}

func loginForm(model *form.Model, conv form.Convention) (form.Form, bool) {
	for _, f := range model.Forms {
		for _, field := range f.Fields {
			if field.Name == conv.PasswordField && field.Type == "password" {
				return f, true
			}
		}
	}
	return form.Form{}, false
}

// credentialPayload serializes the login form as a browser would when its
// first submit button is pressed, with the password field filled in.
func credentialPayload(login form.Form, passwordField, password string) form.Payload {
	var button, buttonValue string
	for _, field := range login.Fields {
		if field.Type == "submit" && field.Name != "" && !field.Disabled {
			button, buttonValue = field.Name, field.Value
			break
		}
	}
	payload := login.Serialize(button, buttonValue)
	for i := range payload {
		if payload[i].Name == passwordField {
			payload[i].Value = password
			return payload
		}
	}
	return append(payload, form.Pair{Name: passwordField, Value: password})
}

// ResolveAction resolves a form action against the page it was served from.
// An empty action posts back to the page itself.
func ResolveAction(pageURL, action string) (string, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	if action == "" {
		return page.String(), nil
	}
	ref, err := url.Parse(action)
	if err != nil {
		return "", err
	}
	return page.ResolveReference(ref).String(), nil
}
