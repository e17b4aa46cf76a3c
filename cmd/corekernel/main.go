// Command corekernel is the task-subsystem kernel's entrypoint:
// subcommands for booting a manifest of workloads and inspecting the
// resulting process table, in the same subcommands.Commander shape as
// runsc/cli.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&Boot{}, "")
	subcommands.Register(&PS{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
