package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fintrack-server/src/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()

	if err != nil {
		log.Println("ERROR:", err)
		os.Exit(1)
	}
}
