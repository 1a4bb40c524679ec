package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-recognizer/internal/artifact"
	"github.com/kozaktomas/face-recognizer/internal/config"
	"github.com/kozaktomas/face-recognizer/internal/constants"
	"github.com/kozaktomas/face-recognizer/internal/recognition"
	"github.com/kozaktomas/face-recognizer/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition API server",
	Long: `Start the HTTP API for recognition, verification and capture checks.

The stored model is loaded at startup. When none exists yet the server
still starts; recognition answers 503 until a model is trained and loaded
with POST /api/v1/model/reload.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST)")
	serveCmd.Flags().String("model", "", "Model directory (default from MODEL_DIR)")
}

// resolveServeHostPort resolves port and host from flags, falling back to configuration.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.Config) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if port == 0 {
		port = cfg.Web.Port
	}
	if host == "" {
		host = cfg.Web.Host
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if dir := mustGetString(cmd, "model"); dir != "" {
		cfg.ModelDir = dir
	}

	locator, trainer, err := newBackends(cfg)
	if err != nil {
		return err
	}
	defer locator.Close()

	holder := recognition.NewHolder()
	if art, err := holder.Load(cfg.ModelDir, trainer); err != nil {
		if !errors.Is(err, artifact.ErrArtifactMissing) {
			return fmt.Errorf("failed to load model: %w", err)
		}
		fmt.Printf("Warning: no model in %s, recognition is disabled until one is trained\n", cfg.ModelDir)
	} else {
		fmt.Printf("Loaded model %s (%d identities, %s)\n", art.Meta.RunID, art.Labels.Len(), art.Meta.Classifier)
	}

	rec := recognition.NewRecognizer(holder, locator, recognitionOptions(cfg))
	port, host := resolveServeHostPort(cmd, cfg)
	server := web.NewServer(cfg, port, host, rec, trainer)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Recognizer API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
