package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"curriculum-rag/internal/app"
	"curriculum-rag/internal/config"
	"curriculum-rag/internal/domain"
)

// typeOrder fixes the report ordering so runs are comparable.
var typeOrder = []domain.ContentType{
	domain.ContentCurriculumTable,
	domain.ContentCourseDescription,
	domain.ContentAppendix,
	domain.ContentGeneral,
}

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
		fmt.Println("Usage: curriculum-index [--config=config.yaml] file1.txt [file2.txt ...]")
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

	reports, err := svc.IngestWithReport(inputs)
	if err != nil {
		color.Red("ingest failed: %v", err)
		os.Exit(1)
	}

	bold := color.New(color.Bold)
	total := 0
	for _, r := range reports {
		bold.Println(r.Path)
		if r.Fragments == 0 {
			color.Yellow("  no indexable content")
			continue
		}
		total += r.Fragments
		for _, ct := range typeOrder {
			if n := r.ByType[ct]; n > 0 {
				fmt.Printf("  %-20s %d\n", ct, n)
			}
		}
	}
	if total == 0 {
		color.Yellow("nothing indexed")
		os.Exit(1)
	}
	color.Green("indexed %d fragments from %d files", total, len(reports))
}
