package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgellow/websession/internal/config"
	"github.com/dgellow/websession/internal/log"
	"github.com/dgellow/websession/session"
)

var BuildVersion = "dev"

func generateDefaultConfig(path string) error {
	defaultConfig := map[string]any{
		"version": config.SupportedVersion,
		"service": map[string]any{
			"baseURL":       "https://connect.example.com",
			"signInURL":     "https://sso.example.com/sso/signin",
			"exchangeURL":   "https://connect.example.com/modern/di-oauth/exchange",
			"backendHeader": "DI-Backend",
			"backendValue":  "connectapi.example.com",
		},
		"signIn": map[string]any{
			"query": map[string]any{
				"service":              "https://connect.example.com/modern",
				"clientId":             "ExampleConnect",
				"gauthHost":            "https://sso.example.com/sso",
				"consumeServiceTicket": "false",
			},
			"form": map[string]any{
				"username": map[string]string{"$env": "WEBSESSION_USERNAME"},
				"password": map[string]string{"$env": "WEBSESSION_PASSWORD"},
				"embed":    "false",
			},
			"headers": map[string]any{
				"Origin": "https://sso.example.com",
			},
		},
		"retry": map[string]any{
			"maxAttempts": session.DefaultMaxAttempts,
			"delay":       session.DefaultRetryDelay.String(),
		},
		"token": map[string]any{
			"safetyMargin": session.DefaultTokenSafetyMargin.String(),
		},
		"http": map[string]any{
			"timeout": "30s",
		},
	}

	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func validateConfig(path string) error {
	result, err := config.ValidateFile(path)
	if err != nil {
		return fmt.Errorf("error during validation: %w", err)
	}

	fmt.Printf("Validating: %s\n", path)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		printIssues(result.Errors)
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Warnings))
		printIssues(result.Warnings)
	}

	fmt.Println()
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		fmt.Println("Result: PASS")
	} else if len(result.Errors) == 0 {
		fmt.Println("Result: FAIL (warnings present)")
	} else {
		fmt.Println("Result: FAIL")
	}

	if len(result.Errors) > 0 || len(result.Warnings) > 0 {
		return fmt.Errorf("validation failed: %d error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	}
	return nil
}

func printIssues(issues []config.ValidationError) {
	for _, issue := range issues {
		if issue.Path != "" {
			fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Printf("  - %s\n", issue.Message)
		}
	}
}

// readBody accepts inline JSON, @path, or - for stdin
func readBody(arg string) ([]byte, error) {
	switch {
	case arg == "":
		return nil, errors.New("-put requires -body")
	case arg == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	default:
		return []byte(arg), nil
	}
}

func run(ctx context.Context, cfg config.Config, method, target string, body []byte) error {
	s, err := session.New(cfg.SessionConfig(), cfg.SessionOptions()...)
	if err != nil {
		return err
	}

	if method == http.MethodPut && !json.Valid(body) {
		return errors.New("-body is not valid JSON")
	}

	resp, err := s.Do(ctx, method, target, body)
	if err != nil {
		return err
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		log.LogInfoWithFields("main", "Empty response", map[string]any{
			"status": resp.StatusCode,
		})
		return nil
	}

	var out bytes.Buffer
	if err := json.Indent(&out, resp.Body, "", "  "); err != nil {
		// Not JSON, print as-is
		out.Reset()
		out.Write(resp.Body)
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(os.Stdout)
	return err
}

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	version := flag.Bool("version", false, "print version and exit")
	help := flag.Bool("help", false, "print help and exit")
	configInit := flag.String("config-init", "", "generate default config file at specified path")
	validate := flag.Bool("validate", false, "validate config file and exit")
	get := flag.String("get", "", "send an authenticated GET to this url (relative to service.baseURL)")
	put := flag.String("put", "", "send an authenticated PUT to this url (relative to service.baseURL)")
	body := flag.String("body", "", "JSON body for -put: inline, @file, or - for stdin")
	logLevel := flag.String("log-level", "", "override LOG_LEVEL (error, warn, info, debug, trace)")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}
	if *version {
		fmt.Println(BuildVersion)
		return
	}
	if *logLevel != "" {
		if err := log.SetLogLevel(*logLevel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *configInit != "" {
		if err := generateDefaultConfig(*configInit); err != nil {
			log.LogError("Failed to generate config: %v", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default config at: %s\n", *configInit)
		return
	}

	if *conf == "" {
		fmt.Fprintf(os.Stderr, "Error: -config flag is required\n")
		fmt.Fprintf(os.Stderr, "Run with -help for usage information\n")
		os.Exit(1)
	}

	if *validate {
		if err := validateConfig(*conf); err != nil {
			os.Exit(1)
		}
		return
	}

	var (
		method  string
		target  string
		payload []byte
	)
	switch {
	case *get != "" && *put != "":
		fmt.Fprintf(os.Stderr, "Error: -get and -put are mutually exclusive\n")
		os.Exit(1)
	case *get != "":
		method, target = http.MethodGet, *get
	case *put != "":
		data, err := readBody(*body)
		if err != nil {
			log.LogError("Failed to read body: %v", err)
			os.Exit(1)
		}
		method, target, payload = http.MethodPut, *put, data
	default:
		fmt.Fprintf(os.Stderr, "Error: one of -get or -put is required\n")
		os.Exit(1)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.LogError("Failed to load config: %v", err)
		os.Exit(1)
	}

	log.LogDebugWithFields("main", "Starting websession", map[string]any{
		"version": BuildVersion,
		"config":  *conf,
		"method":  method,
		"url":     target,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, method, target, payload); err != nil {
		var limited *session.TooManyRequestsError
		if errors.As(err, &limited) && limited.RetryAfter > 0 {
			log.LogErrorWithFields("main", "Rate limited by service", map[string]any{
				"retryAfter": limited.RetryAfter.String(),
			})
		}
		log.LogError("Request failed: %v", err)
		os.Exit(1)
	}
}
