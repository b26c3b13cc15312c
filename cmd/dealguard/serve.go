package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/dealguard/adapters/events"
	"github.com/layer-3/dealguard/adapters/idtoken"
	"github.com/layer-3/dealguard/adapters/store"
	"github.com/layer-3/dealguard/adapters/sui"
	"github.com/layer-3/dealguard/adapters/wallet"
	"github.com/layer-3/dealguard/adapters/zklogin"
	"github.com/layer-3/dealguard/core"
	"github.com/layer-3/dealguard/ports"
	"github.com/layer-3/dealguard/service"
	transporthttp "github.com/layer-3/dealguard/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the dashboard API and watch escrow events",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port")
	serveCmd.Flags().Bool("demo-samples", true, "merge the sample records into the dashboard")
}

// connectRedis pings redis with a short retry budget
func connectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	backoff, err := retry.NewExponential(200 * time.Millisecond)
	if err != nil {
		return nil, err
	}
	err = retry.Do(ctx, retry.WithMaxRetries(5, backoff), func(ctx context.Context) error {
		return retry.RetryableError(client.Ping(ctx).Err())
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return client, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistent session and outbound events: redis when configured, a local
	// file otherwise
	var sessions ports.SessionStore
	var publisher ports.EventPublisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		redisClient, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		wmPublisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			watermill.NewStdLogger(false, false),
		)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		defer wmPublisher.Close()

		sessions = store.NewRedisStore(redisClient, cfg.Profile)
		publisher = events.NewWatermillPublisher(wmPublisher)
	} else {
		fileStore, err := store.NewFileStore(cfg.SessionFile)
		if err != nil {
			return err
		}
		sessions = fileStore
	}

	var deriver ports.AddressDeriver
	if cfg.SaltServiceURL != "" {
		deriver = zklogin.NewSaltService(cfg.SaltServiceURL, nil)
	}

	connector := wallet.NewConnector()
	authService := service.NewAuthService(service.AuthDeps{
		Sessions: sessions,
		Attempts: store.NewMemoryStore(),
		Wallet:   connector,
		Provider: zklogin.NewProvider(zklogin.Config{
			ClientID:    cfg.GoogleClientID,
			RedirectURI: cfg.RedirectURI(),
		}),
		Decoder:   idtoken.NewDecoder(),
		Deriver:   deriver,
		Publisher: publisher,
		Logger:    log,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var stream *transporthttp.Stream
	reducerCfg := service.ReducerConfig{
		PackageID: cfg.PackageID,
		OnIncoming: func(tx core.Transaction) {
			stream.NotifyIncoming(tx)
		},
		Publisher: publisher,
		Metrics:   service.NewMetrics(registry),
		Logger:    log,
	}
	if cfg.DemoSamples {
		reducerCfg.Samples = core.DemoSamples
	}
	reducer := service.NewEventReducer(nil, reducerCfg)
	defer reducer.Close()

	stream = transporthttp.NewStream(reducer.Snapshot, authService.Identity, log)
	reducer.Subscribe(stream.PublishSnapshot)

	watcher := service.NewWatcher(reducer, cfg.PollInterval, log)
	defer watcher.Stop()

	service.FollowIdentity(authService, reducer, watcher, stream.CloseAddress)
	connector.OnChange(func() {
		authService.Reconcile(context.Background())
	})

	id := authService.Reconcile(ctx)
	log.Info().Str("address", id.Address).Str("source", string(id.Kind())).Msg("session restored")

	chain := &sui.Handle{}
	defer chain.Close()
	go connectChain(ctx, cfg.NodeURL, log, func(c *sui.Client) {
		chain.Set(c)
		reducer.SetSource(chain)
		watcher.Restart()
	})

	router := transporthttp.SetupRouter(transporthttp.Deps{
		Auth:     authService,
		Reducer:  reducer,
		Wallet:   connector,
		Balances: chain,
		Stream:   stream,
		Gatherer: registry,
		Logger:   log,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("package", cfg.PackageID).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
