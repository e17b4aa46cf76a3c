package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/rvcore/corekernel/pkg/kernel"
)

// PS implements `corekernel ps`: list every pid currently registered
// in the kernel's pid table.
type PS struct{}

func (*PS) Name() string     { return "ps" }
func (*PS) Synopsis() string { return "list live processes" }
func (*PS) Usage() string {
	return "ps\n  List every process currently registered in the kernel's pid table.\n"
}
func (*PS) SetFlags(*flag.FlagSet) {}

func (*PS) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	pids := kernel.ListPids()
	fmt.Printf("%d process(es)\n", len(pids))
	for _, pid := range pids {
		fmt.Println(pid)
	}
	return subcommands.ExitSuccess
}
