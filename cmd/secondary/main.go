// cmd/secondary is the entrypoint for a secondary node: it accepts
// replicated messages from the master, serves read-only queries, and
// announces itself to the master on startup.
//
// Configuration is entirely via environment variables (see
// internal/config), with flag overrides for the bind address, node name,
// and the master's address to join against.
//
// Example:
//
//	./secondary --addr :10001 --node secondary-1 --master http://localhost:10000
package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"replog/internal/api"
	"replog/internal/config"
	"replog/internal/logging"
	"replog/internal/logstore"
	"replog/internal/ordering"
	"replog/internal/rpc"
	"replog/internal/secondary"
)

func main() {
	addr := flag.String("addr", ":10001", "inter-node and client-facing HTTP listen address")
	nodeName := flag.String("node", "secondary", "this node's identity")
	masterAddr := flag.String("master", "http://localhost:10000", "master node address to join")
	flag.Parse()

	cfg := config.Load()
	if *nodeName != "" {
		cfg.NodeName = *nodeName
	}

	log := logging.New(cfg.NodeName, zerolog.InfoLevel)

	transport := rpc.NewClient(cfg.RequestTimeout)
	state := ordering.NewState()
	localLog := logstore.New()

	serverCfg := secondary.Config{
		Ordering:         cfg.ToOrderingConfig(),
		ReplicationDelay: cfg.ReplicationDelay,
	}
	server := secondary.NewServer(serverCfg, state, localLog, logging.Component(log, "replicator"))

	joinClient := secondary.NewJoinClient(transport, *masterAddr, listenPort(*addr, cfg.RPCPort), cfg.ToRetryConfig(), logging.Component(log, "join"))
	syncServer := secondary.NewSyncServer(server, joinClient, logging.Component(log, "sync"))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.Logger(log), api.Recovery(log))

	handler := api.NewSecondaryHandler(server, syncServer, logging.Component(log, "api"))
	handler.Register(router)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		log.Info().Str("addr", *addr).Str("master", *masterAddr).Msg("secondary listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	go func() {
		time.Sleep(500 * time.Millisecond) // let the listener come up before announcing
		if joinClient.TryJoin(context.Background(), state.CurrentOrdering()) {
			log.Info().Msg("joined master")
		} else {
			log.Warn().Msg("failed to join master on startup")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down secondary")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("server shutdown error")
	}
}

// listenPort extracts the numeric port this process is bound to from its
// own listen address (e.g. ":10001" or "0.0.0.0:10001"), so it can be
// announced to the master in NodeState.Port. Falls back to fallback if addr
// carries no parseable port.
func listenPort(addr string, fallback int) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fallback
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fallback
	}
	return port
}
