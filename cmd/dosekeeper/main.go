package main

import (
	"context"
	"fmt"
	"os"

	"github.com/terraincognita07/dosekeeper/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "dosekeeper: %v\n", err)
		os.Exit(1)
	}
}
