package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		// Interrupted commands already explained themselves through the
		// signal; everything else gets one line on stderr.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "fetchmill: %v\n", err)
		}
		os.Exit(1)
	}
}
