// Command run is a minimal illustrative CLI that submits
// fully-materialized task descriptions for one or more named targets to
// a running workers server. Real workflow/target-graph construction is a
// collaborator concern and stays out of scope here; this binary exists
// to exercise the backend facade and its on-disk tracked-id mapping.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/maumercado/localtaskd/internal/backend"
	"github.com/maumercado/localtaskd/internal/task"
	"github.com/maumercado/localtaskd/pkg/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:12345", "address of a running workers server")
	script := flag.String("script", "", "bash script to run for each target (required)")
	workdir := flag.String("workdir", ".", "working directory for the script")
	cores := flag.Int("cores", 1, "cores required by each target")
	deps := flag.String("deps", "", "comma-separated target names this submission depends on")
	trackedPath := flag.String("tracked", ".gwf/local-backend-tracked.json", "path to the tracked target->task-id mapping")
	poll := flag.Duration("poll", 500*time.Millisecond, "status poll interval")
	flag.Parse()

	targets := flag.Args()
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "usage: run [flags] TARGET [TARGET...]")
		os.Exit(2)
	}
	if *script == "" {
		fmt.Fprintln(os.Stderr, "run: -script is required")
		os.Exit(2)
	}

	var dependencies []string
	if *deps != "" {
		dependencies = strings.Split(*deps, ",")
	}

	c, err := client.New(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	be, err := backend.New(c, *trackedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
	defer be.Close()

	ctx := context.Background()
	for _, name := range targets {
		t := backend.Target{
			Name:       name,
			Script:     *script,
			WorkingDir: *workdir,
			Resources:  task.Resources{Cores: *cores},
		}
		if err := be.Submit(ctx, t, dependencies); err != nil {
			fmt.Fprintf(os.Stderr, "run: failed to submit %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("submitted %s\n", name)
	}

	for _, name := range targets {
		for {
			status, err := be.Status(ctx, name)
			if err != nil {
				fmt.Fprintf(os.Stderr, "run: failed to get status for %s: %v\n", name, err)
				break
			}
			if status != backend.StatusSubmitted && status != backend.StatusRunning {
				fmt.Printf("%s: %s\n", name, status)
				break
			}
			time.Sleep(*poll)
		}
	}
}
