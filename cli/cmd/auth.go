package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/cli/pkg/output"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to DDPay",
	Long:  "Authenticate with email and password and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" {
			return fmt.Errorf("email is required")
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		res, err := app.Client.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if outputFormat != output.FormatTable {
			return output.Render(outputFormat, res.User, nil)
		}
		output.Success("Signed in as %s", displayName(&res.User))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a DDPay account",
	Long:  "Register with an emailed verification code and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		username, _ := cmd.Flags().GetString("username")
		code, _ := cmd.Flags().GetString("code")
		if email == "" || password == "" || code == "" {
			return fmt.Errorf("email, password and code are required")
		}

		res, err := app.Client.Register(cmd.Context(), email, password, username, code)
		if err != nil {
			return fmt.Errorf("register failed: %w", err)
		}
		if outputFormat != output.FormatTable {
			return output.Render(outputFormat, res.User, nil)
		}
		output.Success("Registered and signed in as %s", displayName(&res.User))
		return nil
	},
}

var sendCodeCmd = &cobra.Command{
	Use:   "send-code",
	Short: "Email a verification code",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		codeType, _ := cmd.Flags().GetString("type")
		if email == "" {
			return fmt.Errorf("email is required")
		}
		if codeType != client.CodeTypeRegister && codeType != client.CodeTypeResetPassword {
			return fmt.Errorf("type must be %q or %q", client.CodeTypeRegister, client.CodeTypeResetPassword)
		}

		msg, err := app.Client.SendVerificationCode(cmd.Context(), email, codeType)
		if err != nil {
			return fmt.Errorf("send code failed: %w", err)
		}
		output.Success("%s", orDefault(msg, "Verification code sent to "+email))
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset a password with a verification code",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		code, _ := cmd.Flags().GetString("code")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || code == "" || password == "" {
			return fmt.Errorf("email, code and password are required")
		}

		msg, err := app.Client.ResetPassword(cmd.Context(), email, code, password)
		if err != nil {
			return fmt.Errorf("reset password failed: %w", err)
		}
		output.Success("%s", orDefault(msg, "Password reset"))
		return nil
	},
}

var checkEmailCmd = &cobra.Command{
	Use:   "check-email",
	Short: "Check whether an email is registered",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return fmt.Errorf("email is required")
		}

		check, err := app.Client.CheckEmailExists(cmd.Context(), email)
		if err != nil {
			return err
		}
		return output.Render(outputFormat, check, func() {
			if check.Exists {
				output.Info("%s is registered", email)
			} else {
				output.Info("%s is not registered", email)
			}
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.Client.Logout(cmd.Context()); err != nil {
			return err
		}
		output.Success("Signed out")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if app.Store.RefreshToken() == "" {
			return client.ErrNotAuthenticated
		}
		if err := app.Client.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		output.Success("Session refreshed")
		return nil
	},
}

type whoami struct {
	User            *session.User `json:"user"`
	IsAuthenticated bool          `json:"isAuthenticated"`
	ExpiresAt       *time.Time    `json:"expiresAt"`
	Expired         bool          `json:"expired"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Display the signed-in user",
	Long:  "Show the stored session without contacting the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !app.Store.IsAuthenticated() {
			return client.ErrNotAuthenticated
		}

		info := whoami{
			User:            app.Store.User(),
			IsAuthenticated: true,
			Expired:         app.Store.IsTokenExpired(),
		}
		if exp, ok := app.Store.TokenExpiration(); ok {
			info.ExpiresAt = &exp
		}

		return output.Render(outputFormat, info, func() {
			expires := "unknown"
			if info.ExpiresAt != nil {
				expires = info.ExpiresAt.Local().Format(time.RFC3339)
			}
			if info.Expired {
				expires += " (expired)"
			}
			pairs := [][2]string{{"Expires", expires}}
			if u := info.User; u != nil {
				pairs = append([][2]string{
					{"ID", strconv.FormatInt(u.ID, 10)},
					{"Username", u.Username},
					{"Email", u.Email},
					{"Role", u.Role},
				}, pairs...)
			}
			output.KeyValue(pairs)
		})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, sendCodeCmd, resetPasswordCmd, checkEmailCmd, logoutCmd, refreshCmd, whoamiCmd)

	loginCmd.Flags().StringP("email", "e", "", "account email")
	loginCmd.Flags().StringP("password", "p", "", "account password")

	registerCmd.Flags().StringP("email", "e", "", "account email")
	registerCmd.Flags().StringP("password", "p", "", "account password")
	registerCmd.Flags().StringP("username", "u", "", "display name")
	registerCmd.Flags().StringP("code", "c", "", "verification code from send-code")

	sendCodeCmd.Flags().StringP("email", "e", "", "recipient email")
	sendCodeCmd.Flags().String("type", client.CodeTypeRegister, "code purpose: register, reset_password")

	resetPasswordCmd.Flags().StringP("email", "e", "", "account email")
	resetPasswordCmd.Flags().StringP("code", "c", "", "verification code from send-code")
	resetPasswordCmd.Flags().StringP("password", "p", "", "new password")

	checkEmailCmd.Flags().StringP("email", "e", "", "email to check")
}

func displayName(u *session.User) string {
	if u == nil {
		return "unknown user"
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// exitHint adds a sign-in hint to authentication failures.
func exitHint(err error) error {
	if errors.Is(err, client.ErrNotAuthenticated) || errors.Is(err, client.ErrSessionExpired) {
		return fmt.Errorf("%w (run 'ddpay login')", err)
	}
	return err
}
