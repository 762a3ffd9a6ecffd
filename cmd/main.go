package main

import (
	"os"

	"order_form/internal/delivery/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
