// Command mosaicq runs queries through a mosaic connector and serves the
// query protocol to plotting clients.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
