package main

// Run one analyzer provider directly, without the job service:
//   go run ./cmd/prompttest --provider gemini --file essay.docx
//   go run ./cmd/prompttest --print-prompt --text "..."

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"aichecker-backend/internal/bootstrap"
	"aichecker-backend/internal/extract"
	"aichecker-backend/internal/llm"
	"aichecker-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	filePath := flag.String("file", "", "Path to a .txt, .md, .pdf or .docx file")
	text := flag.String("text", "", "Text to analyze (instead of --file)")
	contextText := flag.String("context", "", "Surrounding context sent with the text")
	purpose := flag.String("purpose", "", "Purpose line for the prompt")
	outPath := flag.String("out", "", "Path to write the raw result (optional)")
	provider := flag.String("provider", cfg.AnalyzerProvider, "Analyzer provider: heuristic, openai or gemini")
	model := flag.String("model", cfg.AnalyzerModel, "Analyzer model")
	printPrompt := flag.Bool("print-prompt", false, "Print the prompts and exit")
	flag.Parse()

	ctx := context.Background()
	input := llm.Input{Text: *text, Purpose: *purpose, Context: *contextText}
	if strings.TrimSpace(*filePath) != "" {
		extracted, err := extract.ExtractFile(ctx, *filePath)
		if err != nil {
			exitErr(fmt.Sprintf("extract text: %v", err))
		}
		input.Text = extracted
	}
	if strings.TrimSpace(input.Text) == "" {
		exitErr("--text or --file is required")
	}

	if *printPrompt {
		fmt.Println("--- system ---")
		fmt.Println(llm.SystemPrompt)
		fmt.Println("--- user ---")
		fmt.Println(llm.UserPrompt(input))
		return
	}

	analyzer, closer, err := bootstrap.NewAnalyzer(ctx, *provider, *model)
	if err != nil {
		exitErr(err.Error())
	}
	if closer != nil {
		defer closer.Close()
	}

	start := time.Now()
	result, err := analyzer.Analyze(ctx, input, func(percent int, message string) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, message)
	})
	if err != nil {
		exitErr(fmt.Sprintf("analyze: %v", err))
	}
	fmt.Fprintf(os.Stderr, "provider=%s model=%s elapsed=%s\n", *provider, *model, time.Since(start).Round(time.Millisecond))

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(result), 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}
	fmt.Println(result)
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
