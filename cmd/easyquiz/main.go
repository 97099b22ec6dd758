// Command easyquiz builds vocabulary quizzes from NHK News Web Easy articles
// and sends them to students over LINE.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		report(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// report prints err with a hint for the kinds a user can act on.
func report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	switch {
	case errors.Is(err, apperr.ErrConnectivity):
		fmt.Fprintln(w, "hint: check the internet connection and that Chrome can start, then run again")
	case errors.Is(err, apperr.ErrContentUnavailable):
		fmt.Fprintln(w, "hint: no article had enough vocabulary; try again later or lower listing.min_vocabulary")
	case errors.Is(err, apperr.ErrPermission):
		fmt.Fprintln(w, "hint: check line.channel_access_token (or EASYQUIZ_LINE_CHANNEL_ACCESS_TOKEN)")
	case errors.Is(err, apperr.ErrInvalidValue):
		fmt.Fprintln(w, "hint: check the flags and the config file")
	}
}

func exitCode(err error) int {
	switch apperr.Kind(err) {
	case "invalid-value":
		return 2
	case "connectivity":
		return 3
	case "content-unavailable":
		return 4
	case "permission":
		return 5
	default:
		return 1
	}
}
