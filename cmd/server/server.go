package main

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/zucenko/mazerun/config"
	"github.com/zucenko/mazerun/server"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	router     *way.Router
	GameServer *server.GameServer
}

func main() {
	config.LoadDotEnv()
	cfg, err := config.LoadServer()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(cfg.LogLevel)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Infof("Maze seed %d", seed)

	s := Server{
		GameServer: server.NewGameServer(rand.New(rand.NewSource(seed)), cfg.AITick),
	}
	if cfg.MazePresets != "" {
		n, err := s.GameServer.LoadPresets(cfg.MazePresets)
		if err != nil {
			log.WithError(err).Fatal("could not load maze presets")
		}
		log.Infof("Loaded %d preset mazes from %s", n, cfg.MazePresets)
	}
	s.routes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

// run serves the TCP protocol and the HTTP router until ctx is done or one
// of them fails.
func (s *Server) run(ctx context.Context, cfg config.Server) error {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(cfg.TCPPort))
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: s.router,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.GameServer.ServeTCP(ctx, ln)
	})
	g.Go(func() error {
		log.Infof("Listening for HTTP on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
