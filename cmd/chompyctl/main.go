// chompyctl - command-line client for a Chompy agent
//
// Usage:
//
//	chompyctl [-agent URL] status
//	chompyctl [-agent URL] dispense [-amount seconds]
//
// The agent URL defaults to $CHOMPY_AGENT_URL, then http://localhost:8080.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/chompy/internal/agentclient"
	"github.com/nerrad567/chompy/internal/infrastructure/config"
)

const defaultAgentURL = "http://localhost:8080"

// errUsage signals a command-line mistake; main exits 2 for it.
var errUsage = errors.New("usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	//nolint:errcheck // .env is optional; a broken one surfaces as a missing URL
	config.LoadEnvFile(config.DefaultEnvFile)

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes one subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("chompyctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	agentURL := fs.String("agent", envOr("CHOMPY_AGENT_URL", defaultAgentURL), "agent base URL")
	timeout := fs.Duration("timeout", 10*time.Second, "request timeout")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: chompyctl [-agent URL] [-timeout d] status | dispense [-amount seconds]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	client, err := agentclient.New(*agentURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	switch fs.Arg(0) {
	case "status":
		return status(ctx, client, stdout)
	case "dispense":
		return dispense(ctx, client, fs.Args()[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return errUsage
	}
}

func status(ctx context.Context, client *agentclient.Client, stdout io.Writer) error {
	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}
	if st.Online {
		fmt.Fprintln(stdout, "online")
	} else {
		fmt.Fprintln(stdout, "offline")
	}
	return nil
}

func dispense(ctx context.Context, client *agentclient.Client, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dispense", flag.ContinueOnError)
	fs.SetOutput(stderr)
	amount := fs.Float64("amount", 0.5, "motor run time in seconds")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	d := time.Duration(*amount * float64(time.Second))
	if err := client.Dispense(ctx, d); err != nil {
		return fmt.Errorf("dispensing: %w", err)
	}
	fmt.Fprintf(stdout, "dispensing for %s\n", d)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
