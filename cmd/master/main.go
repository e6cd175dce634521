// cmd/master is the entrypoint for the master node: the single process
// that accepts client writes and replicates them to the secondary set.
//
// Configuration is entirely via environment variables (see
// internal/config), with flag overrides for the bind address and node
// name so a single binary can be parameterized per deployment.
//
// Example:
//
//	./master --addr :10000 --node master-1
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"replog/internal/api"
	"replog/internal/breaker"
	"replog/internal/config"
	"replog/internal/logging"
	"replog/internal/logstore"
	"replog/internal/master"
	"replog/internal/rpc"
)

func main() {
	addr := flag.String("addr", ":10000", "client-facing HTTP listen address")
	nodeName := flag.String("node", "master", "this node's identity")
	flag.Parse()

	cfg := config.Load()
	if *nodeName != "" {
		cfg.NodeName = *nodeName
	}

	log := logging.New(cfg.NodeName, zerolog.InfoLevel)

	table := master.NewTable()
	stash := master.NewStash()
	transport := rpc.NewClient(cfg.RequestTimeout)
	localLog := logstore.New()

	coordCfg := master.Config{
		WriteQuorum:            cfg.WriteQuorum,
		RequestBlockTimeOnSync: cfg.RequestBlockTimeOnSync,
		Retry:                  cfg.ToRetryConfig(),
	}
	coordinator := master.NewCoordinator(coordCfg, table, stash, transport, localLog, logging.Component(log, "coordinator"))

	breakerCfg := breaker.Config{
		Health:            cfg.ToHealthConfig(),
		StallNodeLifetime: cfg.StallNodeLifetime,
		AbortCmdTimeout:   cfg.AbortCmdTimeout,
		Retry:             cfg.ToRetryConfig(),
	}
	cb := breaker.New(breakerCfg, coordinator, transport, logging.Component(log, "breaker"))
	joinServer := master.NewJoinServer(coordinator, cb, transport, logging.Component(log, "joinserver"))

	// SECONDARY_HOSTS is an optional static bootstrap list: nodes the master
	// dials proactively on startup, rather than waiting for them to
	// self-announce via POST /rpc/join. Each entry is resolved to a
	// dialable address using the configured RPC_PORT the same way a
	// self-announced join falls back to it.
	for _, host := range cfg.SecondaryHosts {
		host := host
		address := master.BuildAddress(host, 0, cfg.RPCPort)
		go func() {
			if !joinServer.HandleJoin(context.Background(), host, address, 0) {
				log.Warn().Str("node", host).Str("address", address).Msg("bootstrap dial failed, awaiting self-announced join instead")
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(log), api.Recovery(log))

	handler := api.NewMasterHandler(coordinator, joinServer, cfg.WriteQuorum, cfg.RPCPort, logging.Component(log, "api"))
	handler.Register(router)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		log.Info().Str("addr", *addr).Int("write_quorum", cfg.WriteQuorum).Msg("master listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down master")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("server shutdown error")
	}
}
