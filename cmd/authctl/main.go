package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/authservice/internal/authctl"
	"github.com/dmitrijs2005/authservice/internal/logging"
)

func main() {
	logger := logging.NewJSONLogger(os.Stderr, "warn")

	if err := authctl.Run(context.Background(), os.Args[1:], os.Stdout, logger); err != nil {
		if !errors.Is(err, authctl.ErrUsage) {
			fmt.Fprintln(os.Stderr, "authctl:", err)
		}
		os.Exit(1)
	}
}
