// Command feedcat fetches or reads RSS and Atom documents and prints them
// as unified JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/feed-unify/app/feed"
	"github.com/lysyi3m/feed-unify/app/fetch"
	"github.com/lysyi3m/feed-unify/app/logger"
	"github.com/lysyi3m/feed-unify/app/parser"
)

type options struct {
	Files       []string `short:"f" long:"file" description:"Parse a local file instead of fetching (repeatable, - for stdin)"`
	Timeout     int      `short:"t" long:"timeout" default:"30" description:"Per-request timeout in seconds"`
	Concurrency int      `short:"c" long:"concurrency" default:"4" description:"Maximum parallel fetches"`
	UserAgent   string   `long:"user-agent" default:"Feed Unify/1.0" description:"User agent string for HTTP requests"`
	StableIDs   bool     `long:"stable-ids" description:"Derive ids of items without guid/link/id from their content"`
	Compact     bool     `long:"compact" description:"Print one JSON document per line"`
	Debug       bool     `long:"debug" description:"Enable debug logging"`

	Args struct {
		URLs []string `positional-arg-name:"URL"`
	} `positional-args:"yes"`
}

type output struct {
	Source   string             `json:"source"`
	Feed     *feed.Feed         `json:"feed,omitempty"`
	Response *feed.ResponseInfo `json:"response,omitempty"`
	Error    string             `json:"error,omitempty"`
	Message  string             `json:"message,omitempty"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	if len(opts.Files) == 0 && len(opts.Args.URLs) == 0 {
		fmt.Fprintln(os.Stderr, "feedcat: give at least one URL or --file")
		os.Exit(2)
	}

	logCloser, err := logger.Setup(logger.Config{Debug: opts.Debug})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := run(ctx, opts)

	failed := false
	for _, result := range results {
		if result.Error != "" {
			failed = true
		}
	}

	if err := write(os.Stdout, results, opts.Compact); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if failed {
		logCloser.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) []output {
	var pipelineOpts []parser.Option
	if opts.StableIDs {
		pipelineOpts = append(pipelineOpts, parser.WithStableIDs())
	}
	pipeline := parser.NewDefaultPipeline(pipelineOpts...)

	results := make([]output, 0, len(opts.Files)+len(opts.Args.URLs))

	for _, path := range opts.Files {
		parsed, err := parseFile(ctx, pipeline, path)
		results = append(results, newOutput(path, parsed, nil, err))
	}

	if len(opts.Args.URLs) > 0 {
		transport := fetch.NewHTTPTransport(nil, opts.UserAgent, fetch.DefaultMaxBodySize)
		gateway := fetch.NewGateway(transport, pipeline)

		fetchOpts := fetch.FetchOptions{Timeout: time.Duration(opts.Timeout) * time.Second}
		for _, batch := range gateway.FetchMany(ctx, opts.Args.URLs, fetchOpts, opts.Concurrency) {
			if batch.Err != nil {
				results = append(results, newOutput(batch.URL, nil, nil, batch.Err))
				continue
			}
			results = append(results, newOutput(batch.URL, batch.Result.Feed, batch.Result.Response, nil))
		}
	}

	return results
}

func parseFile(ctx context.Context, pipeline *parser.Pipeline, path string) (*feed.Feed, error) {
	if path == "-" {
		return pipeline.ParseReader(ctx, os.Stdin)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return pipeline.ParseBytes(ctx, data)
}

func newOutput(source string, parsed *feed.Feed, info *feed.ResponseInfo, err error) output {
	out := output{Source: source, Feed: parsed, Response: info}
	if err == nil {
		return out
	}

	var feedErr *feed.Error
	if errors.As(err, &feedErr) {
		out.Error = string(feedErr.Kind)
		out.Message = feedErr.Message
	} else {
		out.Error = "error"
		out.Message = err.Error()
	}
	return out
}

func write(w io.Writer, results []output, compact bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if compact {
		for _, result := range results {
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
		}
		return nil
	}

	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}
