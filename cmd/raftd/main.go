// Command raftd runs a single Raft node as a standalone process: load
// configuration, wire up storage/log/state machine/transport, and serve
// until an OS signal asks it to stop. Grounded on the cmd/-rooted CLI
// pattern in the rest of the example pack (nireo-dcache,
// ChuLiYu-raft-recovery), built with github.com/spf13/cobra.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	raft "github.com/coral-raft/raft"
	"github.com/coral-raft/raft/consensus"
	"github.com/coral-raft/raft/kvstore"
	"github.com/coral-raft/raft/node"
	"github.com/coral-raft/raft/raftconf"
	"github.com/coral-raft/raft/raftlog"
	"github.com/coral-raft/raft/raftmetrics"
	"github.com/coral-raft/raft/storage"
	"github.com/coral-raft/raft/transport"
	"github.com/coral-raft/raft/wire"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "raftd",
		Short: "Run a node of a replicated key/value Raft cluster",
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var configPath string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a cluster config and run this node until stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(configPath, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "cluster.yaml", "path to the cluster config file")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve Prometheus metrics on")
	return cmd
}

func runNode(configPath, metricsAddr string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("raftd: building logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := raftconf.Load(configPath)
	if err != nil {
		return fmt.Errorf("raftd: loading config %s: %w", configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("raftd: invalid config: %w", err)
	}
	cluster, err := cfg.ClusterInfo()
	if err != nil {
		return fmt.Errorf("raftd: building cluster info: %w", err)
	}

	if err := os.MkdirAll(cfg.LogPath, 0o755); err != nil {
		return fmt.Errorf("raftd: creating log_path %s: %w", cfg.LogPath, err)
	}

	store, err := storage.NewFileStore(cfg.TermVotePath())
	if err != nil {
		return fmt.Errorf("raftd: opening term/vote store: %w", err)
	}
	logEntries, err := raftlog.OpenFileLog(cfg.LogFilePath())
	if err != nil {
		return fmt.Errorf("raftd: opening log %s: %w", cfg.LogFilePath(), err)
	}
	defer logEntries.Close()

	sm := kvstore.New()

	var serializer raft.Serializer = wire.JSONSerializer{}
	if cfg.EncryptionEnabled() {
		serializer, err = wire.NewEncryptedSerializer(serializer, []byte(cfg.SecretKey), []byte(cfg.Salt))
		if err != nil {
			return fmt.Errorf("raftd: building encrypted serializer: %w", err)
		}
	}

	udpTransport, err := transport.Listen(string(cfg.NodeID), serializer, sugar)
	if err != nil {
		return fmt.Errorf("raftd: listening on %s: %w", cfg.NodeID, err)
	}

	reg := prometheus.NewRegistry()
	metrics := raftmetrics.New(reg, cfg.NodeID)

	mod := consensus.New(
		store,
		logEntries,
		sm,
		udpTransport,
		cluster,
		consensus.TimeSettings{
			HeartbeatInterval: cfg.HeartbeatInterval,
			ElectionLow:       cfg.ElectionInterval.Low,
			ElectionHigh:      cfg.ElectionInterval.High,
		},
		sugar,
	)
	mod.SetMetrics(metrics)

	n := node.New(udpTransport, mod)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := n.Start(ctx); err != nil {
		return fmt.Errorf("raftd: starting node: %w", err)
	}

	metricsServer := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Errorw("metrics server stopped", "error", err)
		}
	}()

	sugar.Infow("raftd running", "node_id", cfg.NodeID, "peers", cfg.Peers)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	sugar.Info("raftd shutting down")
	cancel()
	_ = metricsServer.Close()
	return n.Stop()
}
