package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/zjrubin/philips-hue/internal/app"
	"github.com/zjrubin/philips-hue/internal/cli"
)

func main() {
	ctx, cancel := app.SignalContext()
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

// run executes the command line and leaves exit handling to main.
func run(ctx context.Context, out, errOut io.Writer, args []string) error {
	return cli.Run(ctx, args, out, errOut)
}
