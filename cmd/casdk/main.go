package main

import (
	"os"

	"github.com/GriffinCanCode/casdk/cmd/casdk/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
