package main

import (
	"github.com/mxslade/procmux/internal/cli"
	"github.com/mxslade/procmux/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
