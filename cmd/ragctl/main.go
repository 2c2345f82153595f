package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/markdave123-py/knowledge-assistant/internal/core/guard"
	"github.com/markdave123-py/knowledge-assistant/internal/core/ingestion_engine"
	"github.com/markdave123-py/knowledge-assistant/internal/services"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ragctl",
		Usage: "Inspect how the knowledge assistant extracts, chunks, and screens input",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "Print the text extracted from a PDF or plain text file",
				ArgsUsage: "FILE",
				Action:    extractCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "MIME type; guessed from the file extension when empty",
					},
				},
			},
			{
				Name:      "chunk",
				Usage:     "Extract a file and print its chunks",
				ArgsUsage: "FILE",
				Action:    chunkCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "MIME type; guessed from the file extension when empty",
					},
					&cli.IntFlag{
						Name:  "size",
						Usage: "Chunk size in characters",
						Value: ingestion_engine.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "overlap",
						Usage: "Characters shared by consecutive chunks",
						Value: ingestion_engine.DefaultChunkOverlap,
					},
				},
			},
			{
				Name:      "check",
				Usage:     "Validate a query and run it through the injection filter",
				ArgsUsage: "QUERY",
				Action:    checkCommand,
			},
		},
	}
}

func extractText(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("exactly one FILE argument is required", 2)
	}
	path := c.Args().First()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return ingestion_engine.NewDocconvExtractor().ExtractText(ctx, data, c.String("type"), filepath.Base(path))
}

func extractCommand(c *cli.Context) error {
	text, err := extractText(c)
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, text)
	return nil
}

func chunkCommand(c *cli.Context) error {
	chunker, err := ingestion_engine.NewChunker(c.Int("size"), c.Int("overlap"), nil)
	if err != nil {
		return err
	}
	text, err := extractText(c)
	if err != nil {
		return err
	}

	chunks := chunker.Chunk(text)
	for _, ch := range chunks {
		fmt.Fprintf(c.App.Writer, "--- chunk %d (%d chars, ~%d tokens)\n%s\n",
			ch.ChunkIndex, len([]rune(ch.Content)), ch.TokenCount, ch.Content)
	}
	fmt.Fprintf(c.App.Writer, "%d chunks\n", len(chunks))
	return nil
}

func checkCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if err := services.ValidateQuery(query); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	filter, err := guard.NewFilter()
	if err != nil {
		return err
	}
	if reason, blocked := filter.Check(query); blocked {
		return cli.Exit(fmt.Sprintf("blocked: %s", reason), 1)
	}
	fmt.Fprintln(c.App.Writer, "ok")
	return nil
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}
