package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Zkeai/DDPay-web/cli/internal/metrics"
	"github.com/Zkeai/DDPay-web/common/logging"
	"github.com/Zkeai/DDPay-web/common/middleware"
)

const refreshPath = "/user/refresh-token"

// TokenPair is the token payload of login, register and refresh responses.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refresh exchanges the session's refresh token for a new pair and stores it.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// refresh runs detached from ctx cancellation so an abandoned call cannot
// leave the session half rotated.
func (c *Client) refresh(ctx context.Context) error {
	token := c.store.RefreshToken()
	if token == "" {
		return ErrNotAuthenticated
	}
	ctx = context.WithoutCancel(ctx)

	if !c.singleFlight {
		return c.exchange(ctx, token)
	}

	_, err, shared := c.refreshes.Do(token, func() (any, error) {
		return nil, c.exchange(ctx, token)
	})
	if shared {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.RefreshShared).Inc()
	}
	return err
}

func (c *Client) exchange(ctx context.Context, refreshToken string) error {
	err := c.requestRefresh(ctx, refreshToken)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues(metrics.RefreshFailure).Inc()
		c.logger.WarnContext(ctx, "token refresh failed", logging.Error(err))
		return err
	}
	metrics.TokenRefreshTotal.WithLabelValues(metrics.RefreshSuccess).Inc()
	return nil
}

func (c *Client) requestRefresh(ctx context.Context, refreshToken string) error {
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.api.BaseURL+c.api.Endpoint(refreshPath), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := middleware.GetRequestID(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send refresh request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read refresh response: %w", err)
	}

	var env Envelope[TokenPair]
	if err := (&Response{Status: resp.StatusCode, Body: data}).DecodeJSON(&env); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if env.Code != CodeSuccess || env.Data.AccessToken == "" {
		return &APIError{Code: env.Code, Message: env.Msg}
	}

	if err := c.store.UpdateTokens(ctx, env.Data.AccessToken, env.Data.RefreshToken, env.Data.ExpiresIn); err != nil {
		c.logger.WarnContext(ctx, "failed to persist refreshed session", logging.Error(err))
	}
	return nil
}

func (c *Client) forceLogout(ctx context.Context) {
	metrics.ForcedLogoutsTotal.Inc()
	if err := c.store.Logout(context.WithoutCancel(ctx)); err != nil {
		c.logger.WarnContext(ctx, "failed to persist logout", logging.Error(err))
	}
}
