// Command storm-docker starts the Storm and Zookeeper containers that the
// topology document assigns to this machine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdout)
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		code := ExitCode(err)
		if a.logger != nil {
			a.logger.Error("command failed", "error", err, "exit_code", code)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return code
	}
	return ExitSuccess
}
