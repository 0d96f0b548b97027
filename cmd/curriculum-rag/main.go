package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"curriculum-rag/internal/app"
	"curriculum-rag/internal/config"
	"curriculum-rag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		debug   bool
	)
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: curriculum-rag [--config=config.yaml] file1.txt [file2.txt ...]")
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := app.NewLogger(debug)
	defer func() { _ = logger.Sync() }()

	svc, err := app.BuildService(cfg, logger)
	if err != nil {
		log.Fatalf("failed to assemble service: %v", err)
	}

	summary, err := svc.IngestDocuments(inputs)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	m := tui.New(svc, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
