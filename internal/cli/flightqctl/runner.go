// Package flightqctl is the command-line client for the flightq HTTP API.
package flightqctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError marks failures that happened after argument parsing.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

type client struct {
	baseURL string
	http    *http.Client
	stdout  io.Writer
}

// Run executes one command and returns the process exit code: 0 on success, 1 when the request
// fails, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCommand(defaults, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		_, _ = fmt.Fprintln(stderr, reqErr.Error())
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
	_, _ = fmt.Fprint(stderr, root.UsageString())
	return 2
}

func newRootCommand(defaults Options, stdout io.Writer) *cobra.Command {
	var (
		baseURL string
		timeout time.Duration
		c       client
	)

	root := &cobra.Command{
		Use:           "flightqctl",
		Short:         "Ask questions about flight bookings through the flightq API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			httpClient := defaults.HTTPClient
			if httpClient == nil {
				httpClient = &http.Client{Timeout: timeout}
			}
			c = client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, stdout: stdout}
		},
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:5000"), "flightq API base URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", durationOr(defaults.Timeout, 60*time.Second), "HTTP timeout (e.g. 60s)")

	var rawJSON bool
	ask := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question (POST /v1/query)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/v1/query", questionBody(args))
			if err != nil {
				return err
			}
			if rawJSON {
				return c.printJSON(body)
			}
			return c.printAnswer(body)
		},
	}
	ask.Flags().BoolVar(&rawJSON, "json", false, "print the raw JSON response")

	translate := &cobra.Command{
		Use:   "translate <question>",
		Short: "Show the statement a question would run (POST /v1/query/translate)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/v1/query/translate", questionBody(args))
			if err != nil {
				return err
			}
			return c.printTranslation(body)
		},
	}

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "List tables and columns (GET /v1/schema)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.do(cmd.Context(), http.MethodGet, "/v1/schema", nil)
			if err != nil {
				return err
			}
			return c.printSchema(body)
		},
	}

	reload := &cobra.Command{
		Use:   "reload",
		Short: "Reload the source files (POST /v1/schema/reload)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.do(cmd.Context(), http.MethodPost, "/v1/schema/reload", nil)
			if err != nil {
				return err
			}
			return c.printSchema(body)
		},
	}

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Show recently answered questions (GET /v1/history)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/v1/history"
			if limit > 0 {
				path = fmt.Sprintf("%s?limit=%d", path, limit)
			}
			body, err := c.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return c.printHistory(body)
		},
	}
	history.Flags().IntVar(&limit, "limit", 0, "number of entries to show")

	root.AddCommand(ask, translate, schemaCmd, reload, history,
		passthroughCommand(&c, "health", "GET /v1/health", http.MethodGet, "/v1/health"),
		passthroughCommand(&c, "ready", "GET /v1/ready", http.MethodGet, "/v1/ready"),
	)
	return root
}

func passthroughCommand(c *client, name, short, method, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := c.do(cmd.Context(), method, path, nil)
			if err != nil {
				return err
			}
			return c.printJSON(body)
		},
	}
}

func questionBody(args []string) map[string]any {
	return map[string]any{"query": strings.Join(args, " ")}
}

func (c client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &requestError{fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &requestError{fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &requestError{fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &requestError{fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return nil, &requestError{fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}
	return body, nil
}

func (c client) printJSON(body []byte) error {
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
		return nil
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(c.stdout, string(body))
	}
	return nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var formatted bytes.Buffer
	if err := json.Indent(&formatted, bytes.TrimSpace(raw), "", "  "); err != nil {
		return "", false
	}
	return formatted.String(), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
