package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	warppointcmd "github.com/dasjeff/warppoint/internal/cmd/warppoint"
)

func main() {
	cfg, err := warppointcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[WARPPOINT] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := warppointcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
