package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/poller"
	"github.com/kozaktomas/attendance/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the attendance JSON API.

The API serves the dashboard, the roster, the daily register, CSV reports
and a camera session with a server-sent event stream. Log in with one of
the accounts managed by "attendance user".

Examples:
  attendance serve
  attendance serve --port 9090 --session-secret "$(openssl rand -hex 32)"`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (defaults to WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (defaults to WEB_HOST or 0.0.0.0)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (defaults to WEB_SESSION_SECRET)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
	if cfg.Web.SessionSecret == "" {
		fmt.Println("Warning: WEB_SESSION_SECRET is not set, using an insecure development secret")
	}

	if cfg.Database.URL != "" {
		fmt.Printf("Connecting to PostgreSQL database...\n")
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := openUsers(cfg)
	if err != nil {
		return err
	}

	var sessionStore database.SessionStore
	if a.pool != nil {
		if sessionStore, err = database.GetSessionStore(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Session persistence enabled (PostgreSQL)\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	camera := poller.NewSession(ctx, cameraOpener(cfg, a.svc, true))
	server := web.NewServer(cfg, a.svc, accounts, camera, sessionStore)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting attendance API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
