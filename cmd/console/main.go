package main

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/meetingsense/console/internal/api"
	"github.com/meetingsense/console/internal/capture"
	"github.com/meetingsense/console/internal/cli"
	"github.com/meetingsense/console/internal/config"
	"github.com/meetingsense/console/internal/logging"
	"github.com/meetingsense/console/internal/session"
	"github.com/meetingsense/console/internal/store"
)

func main() {
	// Initialize centralized logging
	sugar := logging.Init()
	if sugar == nil {
		l, _ := zap.NewProduction()
		defer l.Sync()
		sugar = l.Sugar()
	}

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config load failed: %v", err)
	}

	client := api.New(cfg.Server.BaseURL, cfg.Server.RequestTimeout)
	snapshot := store.New(cfg.Store.Path)
	sink := cli.NewConsoleSink(os.Stdout, filepath.Join(filepath.Dir(cfg.Store.Path), "recordings"))

	device := capture.NewFFmpegDevice(cfg.Audio.RecorderCommand)
	recorder := capture.NewRecorder(device, capture.Config{
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
		ChunkSamples: cfg.Audio.ChunkSamples,
		InputFormat:  cfg.Audio.InputFormat,
		InputDevice:  cfg.Audio.InputDevice,
	}, sink.CaptureTick)

	dialer := session.ChannelDialer{
		BaseURL:           cfg.Server.BaseURL,
		ReconnectBackoff:  cfg.Session.ReconnectBackoff,
		HeartbeatInterval: cfg.Session.HeartbeatInterval,
	}

	coord := session.New(client, recorder, dialer, snapshot, sink, session.Config{
		FeedSettlingDelay: cfg.Session.FeedSettlingDelay,
		ProcessingWait:    cfg.Session.ProcessingWait,
	})

	deps := &cli.Dependencies{
		Config: cfg,
		Client: client,
		Coord:  coord,
		Store:  snapshot,
	}

	rootCmd := cli.NewRootCmd(deps)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		sugar.Errorw("command failed", "err", err)
		os.Exit(1)
	}

	if l := zap.L(); l != nil {
		_ = l.Sync()
	}
}
