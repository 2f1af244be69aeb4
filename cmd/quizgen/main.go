// Command quizgen generates one syllabus quiz with the configured model and
// prints it as JSON. It is meant for checking prompts and providers by hand.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"cavision/config"
	"cavision/internal/llm"
	"cavision/internal/logger"
	"cavision/services"
	"cavision/structs"
)

func main() {
	configPath := flag.String("config", config.Path(), "path to config file")
	level := flag.String("level", "Foundation", "Foundation, Intermediate or Final")
	group := flag.String("group", "", "Group I or Group II (not for Foundation)")
	subject := flag.String("subject", "", "paper value from the syllabus")
	difficulty := flag.String("difficulty", "Medium", "Easy, Medium or Hard")
	count := flag.Int("count", services.MinQuestions, "number of questions")
	seed := flag.Int64("seed", 0, "variation seed, 0 for random")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	model, err := llm.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatal("failed to create model", "provider", cfg.LLM.Provider, "error", err)
	}

	req := structs.GenerateQuizRequest{
		Level:      *level,
		Group:      *group,
		Subject:    *subject,
		Difficulty: *difficulty,
		Count:      *count,
	}
	if *seed != 0 {
		req.Seed = seed
	}

	gen, err := services.NewGeneratorService(model, nil, log).FromSyllabus(ctx, "quizgen", req)
	if err != nil {
		log.Fatal("generation failed", "error", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(gen); err != nil {
		log.Fatal("failed to write output", "error", err)
	}
}
