package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/layer-3/dealguard/adapters/sui"
	"github.com/layer-3/dealguard/config"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/service"
	"github.com/spf13/cobra"
)

var (
	flagAddress string
	flagOnce    bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "print the escrows of an address as they appear on chain",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&flagAddress, "address", "", "account address to classify events for")
	_ = watchCmd.MarkFlagRequired("address")
	watchCmd.Flags().BoolVar(&flagOnce, "once", false, "poll a single time and exit")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	settings.Set(config.KeyDemoSamples, false)
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !sui.IsValidAddress(flagAddress) {
		return fmt.Errorf("invalid --address %q", flagAddress)
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := sui.Dial(ctx, cfg.NodeURL, nil)
	if err != nil {
		return err
	}
	defer client.Close()

	out := json.NewEncoder(cmd.OutOrStdout())
	reducer := service.NewEventReducer(client, service.ReducerConfig{
		PackageID: cfg.PackageID,
		OnIncoming: func(tx core.Transaction) {
			log.Info().Str("escrow", tx.FullID).Str("buyer", tx.Counterparty).Str("amount", tx.Amount).Msg("incoming escrow")
		},
		Logger: log,
	})
	defer reducer.Close()

	if flagOnce {
		pollCtx, cancel := context.WithTimeout(ctx, cfg.PollInterval)
		defer cancel()
		snap, err := reducer.Poll(pollCtx, flagAddress)
		if err != nil {
			return err
		}
		return out.Encode(service.History(snap, service.Filter{}))
	}

	reducer.Subscribe(func(snap core.Snapshot) {
		_ = out.Encode(struct {
			UpdatedAt    time.Time          `json:"updatedAt"`
			Transactions []core.Transaction `json:"transactions"`
			Stats        service.Stats      `json:"stats"`
		}{snap.UpdatedAt, service.History(snap, service.Filter{}), service.ComputeStats(snap)})
	})

	watcher := service.NewWatcher(reducer, cfg.PollInterval, log)
	watcher.Watch(flagAddress)
	defer watcher.Stop()

	<-ctx.Done()
	return nil
}
