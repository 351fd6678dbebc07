// Command retrieval is a command-line interface for the jurassic
// infrared radiative-transfer optimal-estimation retrieval.
package main

import (
	"fmt"
	"os"

	"github.com/paul-f-baumeister/jurassic-scatter/retrievalutil"
)

func main() {
	cfg := retrievalutil.InitializeConfig()
	if err := cfg.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
