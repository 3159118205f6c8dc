// Command diario-meter shows a live level meter for a local audio input.
package main

import (
	"os"

	"github.com/oszuidwest/diario-bordo/cmd/diario-meter/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
