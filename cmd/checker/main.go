package main

// Check text for signs of AI generation:
//   go run ./cmd/checker --text "..."                      (auto: remote, else local)
//   go run ./cmd/checker --mode local --file essay.docx
//   echo "..." | go run ./cmd/checker --mode sentences --base-url http://localhost:8080

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"aichecker-backend/internal/checker"
	"aichecker-backend/internal/extract"
	"aichecker-backend/internal/heuristic"
	"aichecker-backend/internal/jobclient"
	"aichecker-backend/internal/shared/config"
	"aichecker-backend/internal/shared/telemetry"
)

const (
	exitOK       = 0
	exitError    = 1
	exitBadInput = 2
)

const maxStdinBytes = 5 << 20

var errInputTooLarge = fmt.Errorf("stdin exceeds %d bytes", maxStdinBytes)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	text        string
	file        string
	mode        string
	baseURL     string
	token       string
	purpose     string
	concurrency int
	pollEvery   time.Duration
	maxPolls    int
	quiet       bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	telemetry.SetOutput(stderr)

	cfg := config.LoadClient()
	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitBadInput
	}
	if opts.quiet {
		telemetry.SetOutput(io.Discard)
	}

	text, err := readInput(ctx, opts, stdin)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitBadInput
	}

	c := checker.New(checker.Config{
		Client: jobclient.Config{
			BaseURL:       opts.baseURL,
			Token:         opts.token,
			Model:         cfg.Model,
			PollInterval:  opts.pollEvery,
			MaxAttempts:   opts.maxPolls,
			StatusTimeout: cfg.StatusTimeout,
		},
		SentenceConcurrency: opts.concurrency,
	})
	hooks := checker.Options{
		OnProgress: func(p jobclient.Progress) {
			if !opts.quiet {
				fmt.Fprintf(stderr, "[%3d%%] %s %s\n", p.Percent, p.Status, p.Message)
			}
		},
		OnSentence: func(p checker.SentenceProgress) {
			if opts.quiet {
				return
			}
			state := "done"
			if p.Err != nil {
				state = "failed"
			}
			fmt.Fprintf(stderr, "sentence %d/%d %s (%d finished)\n", p.Index, p.Total, state, p.Done)
		},
	}

	out, err := analyze(ctx, c, opts, text, hooks)
	if err != nil {
		if checker.IsSilent(err) {
			return exitError
		}
		fmt.Fprintf(stderr, "error: %s\n", checker.UserMessage(err))
		if isInputError(err) {
			return exitBadInput
		}
		return exitError
	}
	fmt.Fprintln(stdout, out)
	return exitOK
}

func parseFlags(args []string, cfg config.ClientConfig, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("checker", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.text, "text", "", "Text to analyze")
	fs.StringVar(&opts.file, "file", "", "Path to a .txt, .md, .pdf or .docx file")
	fs.StringVar(&opts.mode, "mode", "auto", "local, remote, sentences or auto")
	fs.StringVar(&opts.baseURL, "base-url", cfg.BaseURL, "Job service base URL")
	fs.StringVar(&opts.token, "token", cfg.Token, "Bearer token for the job service")
	fs.StringVar(&opts.purpose, "purpose", cfg.Purpose, "Purpose sent with each job")
	fs.IntVar(&opts.concurrency, "concurrency", cfg.SentenceConcurrency, "Concurrent sentence jobs in sentences mode")
	fs.DurationVar(&opts.pollEvery, "poll-interval", cfg.PollInterval, "Delay between status polls")
	fs.IntVar(&opts.maxPolls, "max-polls", cfg.MaxPollAttempts, "Status polls before giving up")
	fs.BoolVar(&opts.quiet, "quiet", false, "Suppress progress and logs on stderr")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.mode = strings.ToLower(strings.TrimSpace(opts.mode))
	switch opts.mode {
	case "local", "remote", "sentences", "auto":
	default:
		fmt.Fprintf(stderr, "invalid --mode %q\n", opts.mode)
		return options{}, fmt.Errorf("invalid mode %q", opts.mode)
	}
	if opts.text != "" && opts.file != "" {
		fmt.Fprintln(stderr, "use either --text or --file, not both")
		return options{}, errors.New("conflicting input flags")
	}
	return opts, nil
}

func readInput(ctx context.Context, opts options, stdin io.Reader) (string, error) {
	switch {
	case opts.text != "":
		return opts.text, nil
	case opts.file != "":
		return extract.ExtractFile(ctx, opts.file)
	case stdin != nil:
		raw, err := io.ReadAll(io.LimitReader(stdin, maxStdinBytes+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if len(raw) > maxStdinBytes {
			return "", errInputTooLarge
		}
		return string(raw), nil
	default:
		return "", checker.ErrEmptyInput
	}
}

func analyze(ctx context.Context, c *checker.Checker, opts options, text string, hooks checker.Options) (string, error) {
	switch opts.mode {
	case "local":
		return c.EvaluateLocally(text)
	case "remote":
		if err := connect(ctx, c); err != nil {
			return "", err
		}
		return c.AnalyzeRemotely(ctx, text, opts.purpose, hooks)
	case "sentences":
		if err := connect(ctx, c); err != nil {
			return "", err
		}
		return c.AnalyzeSentences(ctx, text, opts.purpose, hooks)
	default:
		if strings.TrimSpace(opts.baseURL) != "" {
			c.Connect(ctx)
		}
		res, err := c.Analyze(ctx, text, opts.purpose, checker.FallbackToLocal, hooks)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	}
}

func connect(ctx context.Context, c *checker.Checker) error {
	caps := c.Connect(ctx)
	if caps.Connected {
		return nil
	}
	if errors.Is(caps.Err, checker.ErrNotConfigured) {
		return checker.ErrNotConfigured
	}
	return fmt.Errorf("%w: %v", checker.ErrNotConnected, caps.Err)
}

func isInputError(err error) bool {
	return errors.Is(err, checker.ErrEmptyInput) ||
		errors.Is(err, heuristic.ErrInsufficientInput) ||
		errors.Is(err, errInputTooLarge)
}
