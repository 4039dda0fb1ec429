// Command docsearchctl runs index lifecycle operations directly against the
// search engine.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openOperator).Execute(); err != nil {
		os.Exit(1)
	}
}
