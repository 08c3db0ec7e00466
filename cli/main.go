package main

import (
	"os"

	"github.com/Zkeai/DDPay-web/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
