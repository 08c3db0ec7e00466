package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/common/logging"
)

// Profile fetches the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*session.User, error) {
	u, _, err := call[session.User](ctx, c, c.Endpoint("/user/profile"), authed(http.MethodGet, nil))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ProfileUpdate holds editable profile fields. Empty fields are omitted.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// UpdateProfile saves update and refreshes the stored user.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (*session.User, error) {
	u, _, err := call[*session.User](ctx, c, c.Endpoint("/user/profile"), authed(http.MethodPut, update))
	if err != nil {
		return nil, err
	}
	if u == nil || u.ID == 0 {
		if u, err = c.Profile(ctx); err != nil {
			return nil, err
		}
	}
	if err := c.store.SetUser(ctx, *u); err != nil {
		c.logger.WarnContext(ctx, "failed to persist session", logging.Error(err))
	}
	return u, nil
}

// LoginLog is one sign-in attempt.
type LoginLog struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	LoginType  string `json:"login_type"`
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
	Status     int    `json:"status"`
	FailReason string `json:"fail_reason"`
	CreatedAt  string `json:"created_at"`
}

// LoginLogPage is a page of login logs.
type LoginLogPage struct {
	Logs       []LoginLog `json:"logs"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalPages int        `json:"total_pages"`
}

// LoginLogQuery filters login logs. Zero fields are not sent, except Page
// and PageSize which always are.
type LoginLogQuery struct {
	UserID    int64
	IP        string
	Status    *int
	StartTime string
	EndTime   string
	Page      int
	PageSize  int
}

// Values encodes q as query parameters.
func (q LoginLogQuery) Values() url.Values {
	v := url.Values{}
	if q.UserID != 0 {
		v.Set("user_id", strconv.FormatInt(q.UserID, 10))
	}
	if q.IP != "" {
		v.Set("ip", q.IP)
	}
	if q.Status != nil {
		v.Set("status", strconv.Itoa(*q.Status))
	}
	if q.StartTime != "" {
		v.Set("start_time", q.StartTime)
	}
	if q.EndTime != "" {
		v.Set("end_time", q.EndTime)
	}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	return v
}

// LoginLogs lists login attempts matching q. Missing paging fields in the
// response are filled from q.
func (c *Client) LoginLogs(ctx context.Context, q LoginLogQuery) (*LoginLogPage, error) {
	path := c.Endpoint("/user/login-logs") + "?" + q.Values().Encode()
	page, _, err := call[*LoginLogPage](ctx, c, path, authed(http.MethodGet, nil))
	if err != nil {
		return nil, err
	}
	if page == nil {
		page = &LoginLogPage{}
	}
	if page.Logs == nil {
		page.Logs = []LoginLog{}
	}
	if page.Page == 0 {
		page.Page = q.Page
	}
	if page.PageSize == 0 {
		page.PageSize = q.PageSize
	}
	if page.TotalPages == 0 && page.Total > 0 && page.PageSize > 0 {
		page.TotalPages = int((page.Total + int64(page.PageSize) - 1) / int64(page.PageSize))
	}
	return page, nil
}
