// tg9 is a terminal chat client. It renders the chat list and the active
// conversation, fetches history lazily per chat and merges live updates
// from the messaging service into the UI event loop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/immanelg/tg9/internal/logger"
	"github.com/immanelg/tg9/internal/remote"
	"github.com/immanelg/tg9/internal/tui"
)

type appConfig struct {
	serverURL string
	token     string
	logLevel  string
	logFile   string
	pageSize  int
	pollWait  time.Duration
	altScreen bool
	mouse     bool
}

func parseFlags() appConfig {
	cfg := appConfig{}
	flag.StringVar(&cfg.serverURL, "server", envOr("TG9_SERVER", "http://127.0.0.1:8080"), "messaging service base URL")
	flag.StringVar(&cfg.token, "token", envOr("TG9_TOKEN", ""), "session token (established before tg9 starts)")
	flag.StringVar(&cfg.logLevel, "log-level", envOr("TG9_LOG_LEVEL", "info"), "log level")
	flag.StringVar(&cfg.logFile, "log-file", envOr("TG9_LOG_FILE", ""), "log file path; empty disables logging")
	flag.IntVar(&cfg.pageSize, "page-size", envOrInt("TG9_PAGE_SIZE", 30), "messages per history page")
	pollWait := flag.Int("poll-wait", envOrInt("TG9_POLL_WAIT", 25), "update long-poll wait seconds")
	flag.BoolVar(&cfg.altScreen, "alt-screen", envOrBool("TG9_ALT_SCREEN", true), "use the terminal alternate screen")
	flag.BoolVar(&cfg.mouse, "mouse", envOrBool("TG9_MOUSE", true), "enable mouse support")
	flag.Parse()
	cfg.pollWait = time.Duration(*pollWait) * time.Second
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg appConfig) error {
	if cfg.token == "" {
		return errors.New("no session token: pass -token or set TG9_TOKEN")
	}
	if err := logger.Initialize(cfg.logLevel, cfg.logFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	client := remote.NewRestClient(cfg.serverURL, cfg.token, cfg.pollWait)
	dispatch := remote.NewDispatcher(client, 256)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go dispatch.StreamUpdates(ctx)

	opts := []tea.ProgramOption{}
	if cfg.altScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	if cfg.mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}

	// The program owns raw mode and the alternate screen; it restores the
	// terminal on every exit path, including panics inside Update.
	program := tea.NewProgram(tui.New(ctx, dispatch, cfg.pageSize), opts...)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
