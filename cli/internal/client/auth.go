package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/logging"
)

// Verification code purposes accepted by SendVerificationCode.
const (
	CodeTypeRegister      = "register"
	CodeTypeResetPassword = "reset_password"
)

// AuthResult is the data of a successful login or register.
type AuthResult struct {
	User session.User `json:"user"`
	TokenPair
}

// Login signs in with email and password and stores the new session.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	res, _, err := call[AuthResult](ctx, c, c.Endpoint("/user/login"), public(http.MethodPost, body))
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, missingToken("login")
	}
	if err := c.store.Login(ctx, res.User, res.AccessToken, res.RefreshToken, res.ExpiresIn); err != nil {
		c.logger.WarnContext(ctx, "failed to persist session", logging.Error(err))
	}
	return &res, nil
}

// Register creates an account and stores the new session.
func (c *Client) Register(ctx context.Context, email, password, username, code string) (*AuthResult, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
		"username": username,
		"code":     code,
	}
	res, _, err := call[AuthResult](ctx, c, c.Endpoint("/user/register"), public(http.MethodPost, body))
	if err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, missingToken("register")
	}
	if err := c.store.Register(ctx, res.User, res.AccessToken, res.RefreshToken, res.ExpiresIn); err != nil {
		c.logger.WarnContext(ctx, "failed to persist session", logging.Error(err))
	}
	return &res, nil
}

// SendVerificationCode emails a code for codeType, one of CodeTypeRegister
// or CodeTypeResetPassword. It returns the server's message.
func (c *Client) SendVerificationCode(ctx context.Context, email, codeType string) (string, error) {
	body := map[string]string{"email": email, "type": codeType}
	_, msg, err := call[any](ctx, c, c.Endpoint("/user/send-code"), public(http.MethodPost, body))
	return msg, err
}

// ResetPassword sets a new password using an emailed code.
func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) (string, error) {
	body := map[string]string{"email": email, "code": code, "new_password": newPassword}
	_, msg, err := call[any](ctx, c, c.Endpoint("/user/reset-password"), public(http.MethodPost, body))
	return msg, err
}

// EmailCheck is the result of CheckEmailExists.
type EmailCheck struct {
	Exists  bool
	Message string
}

// CheckEmailExists asks whether an account uses email.
func (c *Client) CheckEmailExists(ctx context.Context, email string) (*EmailCheck, error) {
	path := c.Endpoint("/user/check-email") + "?email=" + url.QueryEscape(email)
	data, msg, err := call[struct {
		Exists bool `json:"exists"`
	}](ctx, c, path, public(http.MethodGet, nil))
	if err != nil {
		return nil, err
	}
	return &EmailCheck{Exists: data.Exists, Message: msg}, nil
}

// Logout tells the server to revoke the session and clears it locally.
// The local clear always happens; a failed server call is only logged.
func (c *Client) Logout(ctx context.Context) error {
	_, _, err := call[any](ctx, c, c.Endpoint("/user/logout"), authed(http.MethodPost, nil))
	if err != nil {
		c.logger.WarnContext(ctx, "server logout failed", logging.Error(err))
	}
	return c.store.Logout(context.WithoutCancel(ctx))
}
