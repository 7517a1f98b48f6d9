package main

import (
	"os"

	"github.com/mbeaufort/loadboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
