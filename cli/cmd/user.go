package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/cli/internal/session"
	"github.com/Zkeai/DDPay-web/cli/pkg/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Profile and login history",
}

var userProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Fetch the signed-in user's profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := app.Client.Profile(cmd.Context())
		if err != nil {
			return err
		}
		return renderUser(u)
	},
}

var userUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update username or avatar",
	RunE: func(cmd *cobra.Command, args []string) error {
		var update client.ProfileUpdate
		if cmd.Flags().Changed("username") {
			update.Username, _ = cmd.Flags().GetString("username")
		}
		if cmd.Flags().Changed("avatar") {
			update.Avatar, _ = cmd.Flags().GetString("avatar")
		}
		if update.Username == "" && update.Avatar == "" {
			return fmt.Errorf("nothing to update: set --username or --avatar")
		}

		u, err := app.Client.UpdateProfile(cmd.Context(), update)
		if err != nil {
			return err
		}
		if outputFormat == output.FormatTable {
			output.Success("Profile updated")
		}
		return renderUser(u)
	},
}

var userLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List login attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := client.LoginLogQuery{}
		q.Page, _ = cmd.Flags().GetInt("page")
		q.PageSize, _ = cmd.Flags().GetInt("page-size")
		q.UserID, _ = cmd.Flags().GetInt64("user-id")
		q.IP, _ = cmd.Flags().GetString("ip")
		q.StartTime, _ = cmd.Flags().GetString("start")
		q.EndTime, _ = cmd.Flags().GetString("end")
		if cmd.Flags().Changed("status") {
			status, _ := cmd.Flags().GetInt("status")
			q.Status = &status
		}

		page, err := app.Client.LoginLogs(cmd.Context(), q)
		if err != nil {
			return err
		}

		return output.Render(outputFormat, page, func() {
			if len(page.Logs) == 0 {
				output.Info("No login logs found")
				return
			}
			table := output.NewTable([]string{"ID", "TIME", "TYPE", "IP", "STATUS", "REASON"})
			for _, l := range page.Logs {
				table.AddRow([]string{
					strconv.FormatInt(l.ID, 10),
					l.CreatedAt,
					l.LoginType,
					l.IP,
					loginStatus(l.Status),
					l.FailReason,
				})
			}
			table.Render()
			output.Info("Page %d of %d (%d total)", page.Page, page.TotalPages, page.Total)
		})
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userProfileCmd, userUpdateCmd, userLogsCmd)

	userUpdateCmd.Flags().String("username", "", "new display name")
	userUpdateCmd.Flags().String("avatar", "", "new avatar URL")

	userLogsCmd.Flags().Int("page", 1, "page number")
	userLogsCmd.Flags().Int("page-size", 10, "results per page")
	userLogsCmd.Flags().Int64("user-id", 0, "filter by user ID (admins only)")
	userLogsCmd.Flags().String("ip", "", "filter by IP address")
	userLogsCmd.Flags().Int("status", 0, "filter by status: 1 success, 0 failed")
	userLogsCmd.Flags().String("start", "", "earliest time (YYYY-MM-DD HH:MM:SS)")
	userLogsCmd.Flags().String("end", "", "latest time (YYYY-MM-DD HH:MM:SS)")
}

func renderUser(u *session.User) error {
	return output.Render(outputFormat, u, func() {
		output.KeyValue([][2]string{
			{"ID", strconv.FormatInt(u.ID, 10)},
			{"Username", u.Username},
			{"Email", u.Email},
			{"Avatar", u.Avatar},
			{"Role", u.Role},
		})
	})
}

func loginStatus(status int) string {
	if status == 1 {
		return "success"
	}
	return "failed"
}
