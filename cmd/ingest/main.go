package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"context-resolver/internal/di"
	"context-resolver/internal/infra"
	"context-resolver/internal/infra/config"
	"context-resolver/internal/usecase"
)

var (
	version = "dev"

	verbose bool

	// Upsert command flags
	documentID string
	tenant     string
	title      string
	bodyFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Ingest documents into the resolution index",
	Version: version,
}

var upsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Chunk, embed and index one document",
	Long: `Chunk, embed and index one document. Re-ingesting an existing
document ID replaces its chunks wholesale.

Examples:
  # Index a document from a file
  ingest upsert --document-id 6a1f6f0e-5f1e-4b43-9a64-92a1e1f8c111 \
    --tenant tenant-a --title "IviSkin G3" --body-file g3.txt

  # Read the body from stdin
  cat g3.txt | ingest upsert --document-id ... --tenant tenant-a --title "IviSkin G3"`,
	RunE: runUpsert,
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a document's chunks from the index",
	RunE:  runDelete,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	upsertCmd.Flags().StringVar(&documentID, "document-id", "", "document UUID (required)")
	upsertCmd.Flags().StringVar(&tenant, "tenant", "", "tenant ID (required)")
	upsertCmd.Flags().StringVar(&title, "title", "", "document title")
	upsertCmd.Flags().StringVar(&bodyFile, "body-file", "", "path to the document body (defaults to stdin)")
	_ = upsertCmd.MarkFlagRequired("document-id")
	_ = upsertCmd.MarkFlagRequired("tenant")

	deleteCmd.Flags().StringVar(&documentID, "document-id", "", "document UUID (required)")
	_ = deleteCmd.MarkFlagRequired("document-id")

	rootCmd.AddCommand(upsertCmd)
	rootCmd.AddCommand(deleteCmd)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func setup(ctx context.Context, log *slog.Logger) (*di.ApplicationComponents, func(), error) {
	_ = godotenv.Load()
	cfg := config.Load()

	pool, err := infra.NewPostgresPool(ctx, cfg.DB.DSN(), infra.PoolConfig{
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to db: %w", err)
	}

	components, err := di.NewApplicationComponents(cfg, pool, log)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("wire application: %w", err)
	}

	cleanup := func() {
		components.Telemetry.Stop()
		components.RateLimiter.Stop()
		pool.Close()
	}
	return components, cleanup, nil
}

func runUpsert(cmd *cobra.Command, args []string) error {
	log := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	body, err := readBody()
	if err != nil {
		return err
	}

	components, cleanup, err := setup(ctx, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := components.IndexUsecase.Upsert(ctx, usecase.IndexDocumentInput{
		DocumentID: documentID,
		Tenant:     tenant,
		Title:      title,
		Body:       body,
	}); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	log.Info("ingest_upsert_done", slog.String("document_id", documentID))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	log := newLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	components, cleanup, err := setup(ctx, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := components.IndexUsecase.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	log.Info("ingest_delete_done", slog.String("document_id", documentID))
	return nil
}

func readBody() (string, error) {
	if bodyFile != "" {
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return "", fmt.Errorf("read body file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
