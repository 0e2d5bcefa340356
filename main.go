package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"learnloop/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	dataDir := flag.String("data", "", "data directory override")
	showStats := flag.Bool("stats", false, "print study statistics")
	cleanup := flag.Bool("cleanup", false, "remove duplicate and misfiled topic records")
	exportPath := flag.String("export", "", "write the study report workbook to this path")
	flag.Parse()

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "learnloop:", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
		cfg.JournalPath = ""
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "learnloop:", err)
			os.Exit(1)
		}
	}

	core, err := app.New(cfg, nil, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "learnloop:", err)
		os.Exit(1)
	}
	defer func() { _ = core.Close() }()

	ctx := context.Background()
	ran := false

	if *cleanup {
		ran = true
		removed := core.CleanupDuplicates(ctx)
		fmt.Printf("removed %d duplicate topic record(s)\n", removed)
	}
	if *exportPath != "" {
		ran = true
		if err := core.ExportReport(ctx, *exportPath); err != nil {
			fmt.Fprintln(os.Stderr, "learnloop:", err)
			os.Exit(1)
		}
		fmt.Println("report written to", *exportPath)
	}
	if *showStats || !ran {
		s := core.RefreshStats(ctx)
		fmt.Printf("topics explored:  %d\n", s.TopicsExplored)
		fmt.Printf("steps completed:  %d\n", s.StepsCompleted)
		fmt.Printf("quizzes taken:    %d\n", s.QuizzesTaken)
		fmt.Printf("average score:    %d\n", s.AverageScore)
		fmt.Printf("study minutes:    %d\n", s.StudyMinutes)
		fmt.Printf("current streak:   %d day(s)\n", s.Streak)
	}
}
