package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Zkeai/DDPay-web/cli/internal/gateway"
	"github.com/Zkeai/DDPay-web/common/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local console gateway",
	Long: `Serve a local HTTP gateway for the browser console. The gateway holds the
session and forwards API calls with the bearer token attached, so the
browser never sees a token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srvCfg := app.Config.Server
		if cmd.Flags().Changed("port") {
			srvCfg.Port, _ = cmd.Flags().GetInt("port")
		}

		cors := middleware.DefaultCORSConfig()
		if len(srvCfg.CORS.AllowedOrigins) > 0 {
			cors.AllowedOrigins = srvCfg.CORS.AllowedOrigins
		}

		router := gateway.NewRouter(gateway.RouterConfig{
			API:       app.Client,
			Session:   app.Store,
			Publisher: app.Publisher,
			CORS:      cors,
			Logger:    app.Logger,
		})

		server := gateway.NewServer(gateway.ServerConfig{
			Port:         srvCfg.Port,
			ReadTimeout:  srvCfg.ReadTimeout,
			WriteTimeout: srvCfg.WriteTimeout,
			IdleTimeout:  srvCfg.IdleTimeout,
		}, router, app.Logger)

		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
}
