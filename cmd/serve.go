package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/sus-cli/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run sus as a REST API service",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		addr, _ := cmd.Flags().GetString("addr")
		authToken, _ := cmd.Flags().GetString("auth-token")
		shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")
		corsOrigins, _ := cmd.Flags().GetStringSlice("cors-origins")
		rateLimit, _ := cmd.Flags().GetInt("rate-limit")
		rateBurst, _ := cmd.Flags().GetInt("rate-burst")
		trustProxy, _ := cmd.Flags().GetBool("trust-proxy")
		quiet, _ := cmd.Flags().GetBool("no-banner")

		services, err := appCtx.Services(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !quiet {
			printBanner(out)
		}

		server := api.NewServer(api.Config{
			Scanner:     services.Scanner,
			Health:      services,
			AuthToken:   authToken,
			Logger:      appCtx.Logger.Named("api"),
			CORSOrigins: corsOrigins,
			RateLimit:   rateLimit,
			RateBurst:   rateBurst,
			TrustProxy:  trustProxy,
		})
		defer server.Close()

		httpServer := &http.Server{
			Addr:              addr,
			Handler:           server,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintf(out, "%s API server listening on %s (%d detectors)\n", colorInfo("→"), addr, len(services.Scanner.Detectors()))
			fmt.Fprintf(out, "%s Press Ctrl+C to gracefully shutdown\n", colorInfo("→"))
			serverErrors <- httpServer.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
		case sig := <-shutdown:
			fmt.Fprintf(out, "\n%s Received signal %v, initiating graceful shutdown...\n", colorInfo("→"), sig)
			appCtx.Logger.Info("shutting down", zap.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := httpServer.Shutdown(ctx); err != nil {
				if closeErr := httpServer.Close(); closeErr != nil {
					return fmt.Errorf("failed to gracefully shutdown server: %w (close error: %v)", err, closeErr)
				}
				return fmt.Errorf("failed to gracefully shutdown server: %w", err)
			}

			fmt.Fprintf(out, "%s Server shutdown complete\n", colorSuccess("✓"))
		}

		return nil
	},
}

func printBanner(out io.Writer) {
	fig := figure.NewFigure("sus", "doom", true)
	fmt.Fprint(out, colorError(fig.String()))
	fmt.Fprintln(out, colorInfo("════════════════════════════════════════"))
	fmt.Fprintf(out, "  URL risk scanner %s\n", colorBold(Version))
	fmt.Fprintln(out, colorInfo("════════════════════════════════════════"))
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Address for the API server")
	serveCmd.Flags().String("auth-token", "", "Optional shared secret for API requests")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	serveCmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (empty = allow all)")
	serveCmd.Flags().Int("rate-limit", 10, "Rate limit per IP (requests/second, 0 = disabled)")
	serveCmd.Flags().Int("rate-burst", 20, "Rate limit burst size")
	serveCmd.Flags().Bool("trust-proxy", false, "Rate limit on X-Forwarded-For (only behind a trusted reverse proxy)")
	serveCmd.Flags().Bool("no-banner", false, "Skip the startup banner")
	addConfigFlags(serveCmd)
}
