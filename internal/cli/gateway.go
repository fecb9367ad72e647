package cli

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/salesrelay/salesrelay/internal/channels"
	"github.com/salesrelay/salesrelay/internal/config"
	"github.com/salesrelay/salesrelay/internal/identity"
	"github.com/salesrelay/salesrelay/internal/pipeline"
	"github.com/salesrelay/salesrelay/internal/provider"
	"github.com/salesrelay/salesrelay/internal/store"
	"github.com/salesrelay/salesrelay/internal/stream"
	"github.com/salesrelay/salesrelay/internal/timeline"
)

func newTraceID() string {
	var b [8]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err == nil {
		return hex.EncodeToString(b[:])
	}
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Start the webhook gateway",
	Run:   runGateway,
}

func runGateway(cmd *cobra.Command, args []string) {
	printHeader("🌐 SalesRelay Gateway")
	fmt.Println("Starting SalesRelay Gateway...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var pusher *store.SyncPusher
	if cfg.Sync.Enabled {
		pusher = store.NewSyncPusher(cfg.Sync.BaseURL, cfg.Sync.Token)
	}
	st, err := store.New(cfg.Paths.DataDir, pusher)
	if err != nil {
		fmt.Printf("Store error: %v\n", err)
		os.Exit(1)
	}

	tl, err := timeline.New(filepath.Join(cfg.Paths.DataDir, "timeline.db"))
	if err != nil {
		fmt.Printf("Timeline error: %v\n", err)
		os.Exit(1)
	}
	defer tl.Close()

	var pub *stream.Publisher
	if cfg.Stream.Enabled {
		pub = stream.NewPublisher(cfg.Stream.Brokers, cfg.Stream.Topic)
		if pub != nil {
			defer pub.Close()
		}
	}

	slack := channels.NewSlackChannel(cfg.Channels.Slack)
	var lookup identity.PlatformLookup
	if cfg.Channels.Slack.Enabled {
		lookup = slack
	}
	var telegram *channels.TelegramChannel
	if cfg.Channels.Telegram.Enabled {
		telegram = channels.NewTelegramChannel(cfg.Channels.Telegram)
	}

	var gen provider.Generator
	if p := provider.NewOpenAIProvider(cfg.Provider); p != nil {
		gen = p
		fmt.Println("Provider: generative mode")
	} else {
		fmt.Println("Provider: template mode (no API key)")
	}

	var secondary channels.Channel
	if telegram != nil {
		secondary = telegram
	}
	pipe := pipeline.New(pipeline.Options{
		Store:      st,
		Resolver:   identity.NewResolver(st, lookup),
		Channel:    slack,
		Secondary:  secondary,
		Generator:  gen,
		Timeline:   tl,
		Stream:     pub,
		PMMTarget:  cfg.PMM.SlackChannel,
		OperatorID: cfg.Channels.Telegram.OperatorChatID,
		Logger:     logger,
	})

	mux := newGatewayMux(gatewayDeps{
		pipe:      pipe,
		store:     st,
		timeline:  tl,
		telegram:  telegram,
		authToken: cfg.Gateway.AuthToken,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		fmt.Printf("Gateway listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Gateway error: %v\n", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
}
