package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/herald/config"
	"github.com/teranos/herald/engine"
	"github.com/teranos/herald/errors"
	"github.com/teranos/herald/ledger"
	"github.com/teranos/herald/logger"
	"github.com/teranos/herald/slack"
)

// openStore builds the configured snapshot store. A nil store means the
// ledger is purely in-memory (backend "none").
func openStore(cfg *config.Config) (ledger.SnapshotStore, error) {
	switch cfg.Store.Backend {
	case "", "json":
		return ledger.NewFileStore(cfg.Store.Path), nil
	case "sqlite":
		return ledger.NewSQLiteStore(cfg.Store.Path)
	case "none":
		return nil, nil
	default:
		return nil, errors.Newf("unknown store backend %q", cfg.Store.Backend)
	}
}

// openLedger wires the ledger for administrative commands that never post.
func openLedger() (*ledger.Ledger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	led := ledger.New(store, logger.Named("ledger"))
	cleanup := func() {
		if store != nil {
			store.Close()
		}
	}
	return led, cleanup, nil
}

// buildEngine wires the full stack: config, ledger, Slack client, engine.
func buildEngine() (*engine.Engine, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	led := ledger.New(store, logger.Named("ledger"))

	conv, err := slack.NewClient(cfg.Slack, logger.Named("slack"))
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}

	workdir, _ := os.Getwd()
	eng := engine.New(led, conv, engine.Options{
		DefaultChannel: cfg.Slack.Channel,
		WorkdirHint:    workdir,
		SilentStart:    cfg.Start.Silent,
		WatchdogDelay:  time.Duration(cfg.Watchdog.DelayMs) * time.Millisecond,
	}, logger.Named("engine"))

	cleanup := func() {
		eng.Close()
		if store != nil {
			store.Close()
		}
	}
	return eng, cleanup, nil
}

// printResult renders the structured result on stdout. An {ok:false} result
// is a successful call carrying a negative outcome and exits zero.
func printResult(result *engine.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to render result")
	}
	fmt.Println(string(data))
	return nil
}

// mentionFlag resolves the --mention flag into the engine's optional form:
// nil when the user did not set it, so per-operation defaults apply.
func mentionFlag(cmd *cobra.Command) *bool {
	if !cmd.Flags().Changed("mention") {
		return nil
	}
	v, _ := cmd.Flags().GetBool("mention")
	return &v
}
