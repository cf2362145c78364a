// Command glucostore inspects and edits the glucose tracker's data store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"glucotrack/internal/cli"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if err := cli.Execute(ctx, args, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, "glucostore:", err)
		return 1
	}
	return 0
}
