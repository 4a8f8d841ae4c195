// Command cartsync drives a synchronized shopping cart from the terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/roach88/cartsync/internal/cli"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the exit code. Errors a command has
// already reported are not printed again.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return cli.ExitSuccess
	}
	if !cli.IsReported(err) {
		fmt.Fprintln(stderr, "cartsync:", err)
	}
	return cli.GetExitCode(err)
}
