package main

import (
	"fmt"
	"os"

	"github.com/sitekit-dev/sitekit/internal/cli"
)

func main() {
	if err := cli.App(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
