// Command mazerun is the terminal client of the maze game.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/zucenko/mazerun/client"
	"github.com/zucenko/mazerun/config"
	"github.com/zucenko/mazerun/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadDotEnv()
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	// the terminal belongs to the game, so logs go to a file
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	log.SetOutput(logFile)
	log.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := transport.Dial(ctx, cfg.ServerAddr)
	if err != nil {
		return fmt.Errorf("cannot connect to %s: %w", cfg.ServerAddr, err)
	}
	defer conn.Close()
	log.WithField("server", conn.RemoteAddr()).Info("connected")

	term := client.NewTermboxTerminal()
	defer term.Close()
	m := client.NewManager(term, conn)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		err := m.Listen()
		log.WithError(err).Info("server connection closed")
		cancel()
	}()

	err = m.Run(ctx)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
