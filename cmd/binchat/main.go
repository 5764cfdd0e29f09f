package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lkarlsen/binchat/internal/broker"
	"github.com/lkarlsen/binchat/internal/history"
)

func main() {
	addr := flag.String("addr", ":2023", "TCP address for the chat relay broker")
	historyDir := flag.String("history-dir", "ChatHistory", "Directory holding per-user chat history snapshots")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	store := history.NewStore(*historyDir)
	manager := broker.NewManager(*addr, store, logger)

	if err := manager.Listen(); err != nil {
		logger.Fatalf("failed to start broker: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := manager.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("broker stopped with error: %v", err)
	}
}
