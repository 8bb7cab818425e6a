package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"yomitore/internal/app"
	"yomitore/internal/dataset"
	"yomitore/internal/quiz"
	"yomitore/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// runProgram is replaced in tests; the real program needs a terminal.
var runProgram = func(m tea.Model, stdout io.Writer) error {
	_, err := tea.NewProgram(m, tea.WithOutput(stdout), tea.WithAltScreen()).Run()
	return err
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg := app.LoadConfig()

	fs := flag.NewFlagSet("yomitore-tui", flag.ContinueOnError)
	fs.SetOutput(stderr)
	source := fs.String("source", cfg.DatasetSource, "CSV or XLSX file path or http(s) URL")
	questionCol := fs.Int("question-col", cfg.QuestionColumn, "0-based question column")
	displayCol := fs.Int("display-col", cfg.DisplayColumn, "0-based display answer column")
	readingCol := fs.Int("reading-col", cfg.ReadingColumn, "0-based reading answer column")
	reveal := fs.Bool("reveal", cfg.RevealEnabled, "reveal the question character by character")
	interval := fs.Duration("interval", cfg.RevealInterval, "reveal interval per character")
	noColor := fs.Bool("no-color", false, "disable colors")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *questionCol < 0 || *displayCol < 0 || *readingCol < 0 {
		fmt.Fprintln(stderr, "column indices must not be negative")
		return exitUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DatasetFetchTimeout+5*time.Second)
	defer cancel()
	items, err := dataset.Load(ctx, dataset.NewSource(*source, cfg.DatasetFetchTimeout), dataset.Columns{
		Question: *questionCol,
		Display:  *displayCol,
		Reading:  *readingCol,
	})
	if err != nil {
		fmt.Fprintf(stderr, "エラー: %v\n", err)
		return exitError
	}

	model, err := tui.NewModel(quiz.Shuffle(items, nil), tui.Options{
		Reveal:      quiz.RevealSettings{Enabled: *reveal, Interval: *interval},
		MinInterval: cfg.RevealMinInterval,
		MaxInterval: cfg.RevealMaxInterval,
		NoColor:     *noColor,
	})
	if err != nil {
		fmt.Fprintf(stderr, "エラー: %v\n", err)
		return exitError
	}

	if err := runProgram(model, stdout); err != nil {
		fmt.Fprintf(stderr, "terminal UI failed: %v\n", err)
		return exitError
	}
	return exitOK
}
