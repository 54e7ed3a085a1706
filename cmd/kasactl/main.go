package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"kasa-backend/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand(nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "hata:", err)
		stop()
		os.Exit(1)
	}
}
