// Command rev is the Rev toolchain entry point: it runs, checks, formats
// and inverts reversible programs.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitUsage)
	}
}
