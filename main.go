// hivechat - a terminal chat with a two player board game on the side.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hivechat/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "hivechat: %v\n", err)
		os.Exit(1)
	}
}
