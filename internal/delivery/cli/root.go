package cli

import (
	"fmt"
	"os"

	"order_form/config"
	"order_form/internal/clients"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orderform",
		Short:         "Order entry form backend",
		Long:          "orderform keeps order-form sessions (catalog, line items, totals) and submits finished orders to the backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSubmitCmd())
	return cmd
}

func Execute() error {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func setupLogger(level string, jsonFormat bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', using default 'info'. Error: %v", level, err)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

func newBackendClient(cfg *config.Config, logger *logrus.Logger) (clients.BackendClient, error) {
	return clients.NewBackendHTTPClient(clients.Options{
		BaseURL:        cfg.BackendURL,
		PagePath:       cfg.PagePath,
		SessionID:      cfg.SessionID,
		CSRFCookieName: cfg.CSRFCookieName,
		Timeout:        cfg.HTTPTimeout,
	}, logger)
}
