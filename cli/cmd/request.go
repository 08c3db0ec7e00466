package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zkeai/DDPay-web/cli/internal/client"
	"github.com/Zkeai/DDPay-web/cli/pkg/output"
)

var requestCmd = &cobra.Command{
	Use:   "request METHOD PATH",
	Short: "Send an arbitrary API request with the stored session",
	Long: `Send a request through the authenticated client. PATH is relative to the
API prefix ("/user/profile"). Tokens are attached and refreshed automatically.`,
	Example: `  ddpay request GET /user/profile
  ddpay request PUT /user/profile --data '{"username":"alice"}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method := strings.ToUpper(args[0])
		data, _ := cmd.Flags().GetString("data")
		skipAuth, _ := cmd.Flags().GetBool("skip-auth")
		noRefresh, _ := cmd.Flags().GetBool("no-refresh")

		opts := &client.RequestOptions{
			Method:   method,
			SkipAuth: skipAuth,
		}
		if noRefresh {
			opts.RefreshOnUnauthorized = client.Bool(false)
		}
		if data != "" {
			if !json.Valid([]byte(data)) {
				return fmt.Errorf("--data is not valid JSON")
			}
			opts.Body = json.RawMessage(data)
		}

		var body json.RawMessage
		if err := app.Client.Do(cmd.Context(), app.Client.Endpoint(args[1]), opts, &body); err != nil {
			return err
		}
		return output.Render(outputFormat, body, func() {
			_ = output.JSON(body)
		})
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)

	requestCmd.Flags().StringP("data", "d", "", "JSON request body")
	requestCmd.Flags().Bool("skip-auth", false, "send without a bearer token")
	requestCmd.Flags().Bool("no-refresh", false, "do not refresh the session on 401")
}
