// Command graphrag ingests a document corpus and a knowledge graph and
// answers analytical questions over them from the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
