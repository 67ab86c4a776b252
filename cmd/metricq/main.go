// Command metricq resolves metric queries against a semantic manifest.
package main

import (
	"os"

	"github.com/roach88/metricq/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
