package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fadilmartias/project-evaluator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, cli.ErrEvaluationFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
