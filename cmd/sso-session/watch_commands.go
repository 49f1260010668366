package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xmhha/sso-session/pkg/monitor"
	"github.com/0xmhha/sso-session/pkg/store"
	"github.com/0xmhha/sso-session/pkg/watcher"
)

// watchCommand imports session configs from a directory as they change.
type watchCommand struct {
	configPath string
	dir        string
	account    string
	recursive  bool
}

func parseWatchCommand(configPath string, args []string) (*watchCommand, error) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	dir := fs.String("dir", "", "directory to watch (default: from config)")
	account := fs.String("account", "", "smart account attached to imported sessions")
	recursive := fs.Bool("recursive", false, "also watch subdirectories")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	return &watchCommand{
		configPath: configPath,
		dir:        *dir,
		account:    *account,
		recursive:  *recursive,
	}, nil
}

// runWatchCommand runs the watch command.
func runWatchCommand(configPath string, args []string) error {
	cmd, err := parseWatchCommand(configPath, args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the watch command.
func (c *watchCommand) Execute() error {
	env, err := loadEnvironment(c.configPath)
	if err != nil {
		return err
	}

	dir := c.dir
	if dir == "" {
		dir = env.cfg.Watch.Dir
	}
	dir = expandHome(dir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close() //nolint:errcheck // best effort cleanup
	}()

	importer := &watcher.Importer{Store: st, Account: c.account, Logger: env.log}

	// Pick up files written while nobody was watching.
	records, err := importer.ImportDir(dir, ".json")
	if err != nil {
		return err
	}
	for _, rec := range records {
		printImported(rec)
	}

	w, err := watcher.New(watcher.Config{
		DebounceInterval:        env.cfg.Watch.Debounce,
		Recursive:               c.recursive,
		CircuitBreakerThreshold: env.cfg.Watch.CircuitBreakerThreshold,
	}, env.log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = w.Close() //nolint:errcheck // best effort cleanup
	}()

	ctx, cancel := signalContext()
	defer cancel()

	env.serveMetrics(ctx)

	if err := w.Start(ctx, []string{dir}); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", dir)

	err = importer.Run(ctx, w, printImported)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nStopped watching.")
		return nil
	}
	return err
}

func printImported(rec *store.Record) {
	name := rec.Name
	if name == "" {
		name = "-"
	}
	fmt.Printf("[%s] imported %s (%s)\n", time.Now().Format("15:04:05"), rec.Hash, name)
}

// monitorCommand polls the on-chain state of registered sessions.
type monitorCommand struct {
	configPath     string
	refresh        time.Duration
	format         string
	once           bool
	includeRevoked bool
	hashes         []string
}

func parseMonitorCommand(configPath string, args []string) (*monitorCommand, error) {
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	refresh := fs.Duration("refresh", 0, "refresh interval (default: from config, e.g., 5s, 1m)")
	format := fs.String("format", "", "output format (auto, table, json, simple)")
	once := fs.Bool("once", false, "poll once and exit")
	includeRevoked := fs.Bool("include-revoked", false, "also poll sessions marked revoked")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *refresh < 0 {
		return nil, fmt.Errorf("-refresh must be positive")
	}

	return &monitorCommand{
		configPath:     configPath,
		refresh:        *refresh,
		format:         *format,
		once:           *once,
		includeRevoked: *includeRevoked,
		hashes:         fs.Args(),
	}, nil
}

// runMonitorCommand runs the monitor command.
func runMonitorCommand(configPath string, args []string) error {
	cmd, err := parseMonitorCommand(configPath, args)
	if err != nil {
		return err
	}
	return cmd.Execute()
}

// Execute runs the monitor command.
func (c *monitorCommand) Execute() error {
	env, err := loadEnvironment(c.configPath)
	if err != nil {
		return err
	}

	formatter, err := env.formatter(c.format, false)
	if err != nil {
		return err
	}

	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close() //nolint:errcheck // best effort cleanup
	}()

	hashes, err := c.resolveHashes(st)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	p, err := env.dial(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	refresh := c.refresh
	if refresh == 0 {
		refresh = env.cfg.Monitor.RefreshInterval
	}

	mon, err := monitor.New(monitor.Config{
		Validator:       env.cfg.SessionValidatorAddress(),
		Hashes:          hashes,
		RefreshInterval: refresh,
		IncludeRevoked:  c.includeRevoked,
	}, p, st, env.metrics, env.log)
	if err != nil {
		return err
	}
	defer func() {
		_ = mon.Close() //nolint:errcheck // best effort cleanup
	}()

	if c.once {
		updates, err := mon.Poll(ctx)
		if err != nil {
			return err
		}
		return formatter.FormatUpdates(os.Stdout, updates)
	}

	env.serveMetrics(ctx)

	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("failed to start monitor: %w", err)
	}

	fmt.Printf("Monitoring sessions every %s (Ctrl+C to stop)\n", refresh)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopped monitoring.")
			return nil
		case update, ok := <-mon.Updates():
			if !ok {
				return nil
			}
			if err := formatter.FormatUpdates(os.Stdout, []monitor.Update{update}); err != nil {
				return err
			}
		}
	}
}

// resolveHashes maps hash or name arguments to session hashes.
func (c *monitorCommand) resolveHashes(st store.Store) ([]string, error) {
	hashes := make([]string, 0, len(c.hashes))
	for _, ref := range c.hashes {
		rec, err := lookupRecord(st, ref)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		hashes = append(hashes, rec.Hash)
	}
	return hashes, nil
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
