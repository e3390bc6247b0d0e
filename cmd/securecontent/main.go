// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Command securecontent decorates forum posts containing [login] and [reply]
// regions. It runs either as an HTTP service for hosts that render pages
// server-side, or as a one-shot filter over a post read from a file or stdin.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aiku/securecontent/pkg/securecontent"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	logLevel   string

	decorateThreadID   string
	decorateThreadPage bool
	decorateLocale     string
	decorateRaw        bool
	decorateDocument   bool
	decorateViewerID   string
	decorateViewerName string
	decoratePostCount  int
	decorateAdmin      bool
	decorateToken      string
	decorateJSON       bool
	decorateExcerpt    bool
	decorateMarkdown   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "securecontent",
		Short:         "Login-only and reply-only regions for forum posts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file (defaults to the example config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the decoration HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	decorateCmd := &cobra.Command{
		Use:   "decorate [file]",
		Short: "Decorate one post read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDecorate,
	}
	flags := decorateCmd.Flags()
	flags.StringVarP(&decorateThreadID, "thread", "t", "", "id of the thread the post belongs to; empty renders a preview")
	flags.BoolVar(&decorateThreadPage, "thread-page", false, "treat the render as part of a full thread page")
	flags.StringVar(&decorateLocale, "locale", "", "locale of the viewer")
	flags.BoolVar(&decorateRaw, "raw", false, "input is composer markdown rather than cooked HTML")
	flags.BoolVar(&decorateDocument, "document", false, "input is a full page; every cooked post in it is decorated")
	flags.StringVar(&decorateViewerID, "viewer", "", "id of the viewer; empty is anonymous")
	flags.StringVar(&decorateViewerName, "viewer-username", "", "username of the viewer; forum requests are made as this user")
	flags.IntVar(&decoratePostCount, "post-count", securecontent.UnknownPostCount, "site-wide post count of the viewer")
	flags.BoolVar(&decorateAdmin, "admin", false, "the viewer is an administrator")
	flags.StringVar(&decorateToken, "mattermost-token", "", "resolve the viewer from a Mattermost session token")
	flags.BoolVar(&decorateJSON, "json", false, "print the full decoration result as JSON")
	flags.BoolVar(&decorateExcerpt, "excerpt", false, "print the plain-text excerpt instead of HTML")
	flags.BoolVar(&decorateMarkdown, "markdown", false, "print markdown instead of HTML")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "securecontent %s (commit %s, built %s)\n", Tag, Commit, BuildTime)
		},
	}

	exampleCmd := &cobra.Command{
		Use:   "example-config",
		Short: "Print the example config",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), securecontent.ExampleConfig)
		},
	}

	root.AddCommand(serveCmd, decorateCmd, versionCmd, exampleCmd)
	return root
}

// setup loads the config and builds the logger.
func setup() (*securecontent.Config, zerolog.Logger, error) {
	cfg, err := securecontent.LoadConfig(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := cfg.Level()
	if logLevel != "" {
		if level, err = zerolog.ParseLevel(logLevel); err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Str("version", Tag).
		Logger()
	return cfg, log, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	svc, err := securecontent.NewService(*cfg, nil, log)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return svc.Start(ctx)
}

func runDecorate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	in := io.Reader(cmd.InOrStdin())
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	input, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	viewer, err := resolveViewer(ctx, cfg)
	if err != nil {
		return err
	}

	req := &securecontent.DecorateRequest{
		ThreadID:   decorateThreadID,
		ThreadPage: decorateThreadPage,
		Locale:     decorateLocale,
		Viewer:     viewer,
		Markdown:   decorateMarkdown,
	}
	switch {
	case decorateDocument:
		req.Document = string(input)
	case decorateRaw:
		req.Raw = string(input)
	default:
		req.HTML = string(input)
	}

	svc, err := securecontent.NewService(*cfg, nil, log)
	if err != nil {
		return err
	}
	resp, err := svc.Decorate(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if decorateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if decorateMarkdown {
		_, err = fmt.Fprintln(out, resp.Markdown)
		return err
	}
	if decorateExcerpt {
		_, err = fmt.Fprintln(out, resp.Excerpt)
		return err
	}
	_, err = fmt.Fprintln(out, resp.HTML)
	return err
}

func resolveViewer(ctx context.Context, cfg *securecontent.Config) (*securecontent.Viewer, error) {
	if decorateToken != "" {
		return securecontent.CurrentViewer(ctx, cfg.MattermostURL, decorateToken)
	}
	if decorateViewerID == "" {
		return nil, nil
	}
	return &securecontent.Viewer{
		ID:        decorateViewerID,
		Username:  decorateViewerName,
		Admin:     decorateAdmin,
		PostCount: decoratePostCount,
	}, nil
}
