package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/conorfennell/flashmind/internal/config"
	"github.com/conorfennell/flashmind/internal/domain"
	"github.com/conorfennell/flashmind/internal/ingest"
	"github.com/conorfennell/flashmind/internal/knol"
	"github.com/conorfennell/flashmind/internal/logging"
	"github.com/conorfennell/flashmind/internal/storage"
	"github.com/conorfennell/flashmind/internal/study"
	"github.com/conorfennell/flashmind/internal/sync"
	"github.com/conorfennell/flashmind/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type commands struct {
	addSource   string
	listSources bool
	sync        bool
	generate    string
	deckTitle   string
	serve       bool
}

func run(args []string, stdout io.Writer) error {
	// 1. Define and parse command-line flags
	fs := pflag.NewFlagSet("flashmind", pflag.ContinueOnError)
	config.RegisterFlags(fs)

	var cmd commands
	fs.StringVar(&cmd.addSource, "add-source", "", "Add a local directory or git URL as a card source")
	fs.BoolVar(&cmd.listSources, "list-sources", false, "List all configured sources")
	fs.BoolVar(&cmd.sync, "sync", false, "Sync all sources into decks")
	fs.StringVar(&cmd.generate, "generate", "", "Extract flashcards from a document and print them")
	fs.StringVar(&cmd.deckTitle, "deck-title", "", "With --generate, save the cards as a deck with this title")
	fs.BoolVar(&cmd.serve, "serve", false, "Run the HTTP API server")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// 2. Load configuration and install the logger
	cfg, err := config.Load(fs)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd.generate != "" && cmd.deckTitle == "" {
		return generateCards(ctx, nil, cfg, cmd.generate, "", stdout)
	}

	// 3. Open the database
	db, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Debug("Database opened successfully", "path", cfg.Database.Path)

	switch {
	case cmd.addSource != "":
		return addNewSource(ctx, db, cmd.addSource, stdout)
	case cmd.listSources:
		return listAllSources(ctx, db, stdout)
	case cmd.sync:
		return runSync(ctx, db, cfg, stdout)
	case cmd.generate != "":
		return generateCards(ctx, db, cfg, cmd.generate, cmd.deckTitle, stdout)
	case cmd.serve:
		return serve(ctx, db, cfg)
	default:
		fmt.Fprintf(stdout, "Usage of flashmind:\n%s", fs.FlagUsages())
		return nil
	}
}

func addNewSource(ctx context.Context, db *storage.DB, path string, stdout io.Writer) error {
	path, sourceType, err := sync.ResolveSource(path)
	if err != nil {
		return fmt.Errorf("failed to add source: %w", err)
	}

	if existing, err := db.FindSourceByPath(ctx, path); err == nil {
		fmt.Fprintf(stdout, "Source already exists: %s (id %d)\n", existing.Path, existing.ID)
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	id, err := db.InsertSource(ctx, path, sourceType)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Added %s source %s (id %d)\n", sourceType, path, id)
	return nil
}

func listAllSources(ctx context.Context, db *storage.DB, stdout io.Writer) error {
	sources, err := db.GetAllSources(ctx)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		fmt.Fprintln(stdout, "No sources configured. Add one with --add-source <path/or/url.git>")
		return nil
	}

	rows := make([][]string, 0, len(sources))
	for _, src := range sources {
		scanned := "never"
		if src.LastScanned != nil {
			scanned = humanize.Time(*src.LastScanned)
		}
		rows = append(rows, []string{strconv.FormatInt(src.ID, 10), src.Type, src.Path, scanned})
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"ID", "Type", "Path", "Last Scanned"},
		rows,
		0,
	))
	return nil
}

func runSync(ctx context.Context, db *storage.DB, cfg *config.Config, stdout io.Writer) error {
	report, err := sync.RunSync(ctx, db, sync.Options{
		ReposDir:    cfg.Sync.ReposDir,
		GitAttempts: cfg.Sync.GitAttempts,
		Params:      cfg.SchedulerParams(),
	})
	if err != nil {
		return err
	}

	// 4. Print the final report
	fmt.Fprintf(stdout, "Synced %d sources: %d decks changed, %d cards added, %d cards removed, %d errors.\n",
		report.Sources, report.Decks, report.Inserted, report.Deleted, len(report.Errors))
	if len(report.Errors) > 0 {
		fmt.Fprintln(stdout, "\nErrors:")
		for _, e := range report.Errors {
			fmt.Fprintf(stdout, "- %s\n", e)
		}
	}
	return nil
}

// generateCards extracts candidates from path and prints them. With a title
// and a database the candidates are also saved as a deck.
func generateCards(ctx context.Context, db *storage.DB, cfg *config.Config, path, title string, stdout io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	name := filepath.Base(path)
	doc, candidates := ingest.Generate(name, "", data)

	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, []string{strconv.Itoa(i + 1), c.Front, c.Back})
	}
	fmt.Fprintf(stdout, "%s (%s, %s): %d flashcards\n", name, doc.ContentType, humanize.Bytes(uint64(doc.Size)), len(candidates))
	if doc.Degraded {
		fmt.Fprintln(stdout, "Text could not be extracted from this file type; cards are based on its name.")
	}
	fmt.Fprintln(stdout, renderTable(
		[]string{"#", "Front", "Back"},
		rows,
		0,
	))

	if db == nil || title == "" {
		return nil
	}

	svc := study.NewService(db, cfg.SchedulerParams())
	cards := make([]domain.Card, 0, len(candidates))
	for _, c := range candidates {
		cards = append(cards, svc.NewCard("", c.Front, c.Back, ""))
	}
	deck, stored, err := db.CreateDeck(ctx, domain.Deck{Title: title, Description: "Generated from " + name}, knol.Unique(cards))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved deck %q (%s) with %d cards.\n", deck.Title, deck.ID, len(stored))
	return nil
}

func serve(ctx context.Context, db *storage.DB, cfg *config.Config) error {
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: web.NewServer(db, web.Options{
			Params:         cfg.SchedulerParams(),
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Sync: sync.Options{
				ReposDir:    cfg.Sync.ReposDir,
				GitAttempts: cfg.Sync.GitAttempts,
				Params:      cfg.SchedulerParams(),
			},
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
