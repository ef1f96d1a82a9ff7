package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/eventdesk/dashboard/pkg/content"
	"github.com/eventdesk/dashboard/pkg/seed"
)

func runMigrateCmd(stdout, stderr io.Writer) int {
	ctx := context.Background()
	a, err := openApp(ctx, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%smigrate failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}
	defer a.close()
	fmt.Fprintf(stdout, "%s✓%s schema up to date (%s)\n", ColorGreen, ColorReset, a.db.Driver)
	return 0
}

func runRepairCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("repair", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	jsonOutput := cmd.Bool("json", false, "Output result as JSON")
	verifyOnly := cmd.Bool("verify", false, "Only report broken collections, change nothing")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	a, err := openApp(ctx, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%srepair failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}
	defer a.close()

	collections := cmd.Args()
	if len(collections) == 0 {
		collections = a.content.Repair.Collections()
	}

	if *verifyOnly {
		broken := 0
		for _, c := range collections {
			if err := a.content.Repair.Verify(ctx, c); err != nil {
				broken++
				fmt.Fprintf(stdout, "%s✗%s %s: %v\n", ColorRed, ColorReset, c, err)
				continue
			}
			fmt.Fprintf(stdout, "%s✓%s %s\n", ColorGreen, ColorReset, c)
		}
		if broken > 0 {
			return 1
		}
		return 0
	}

	var reports []content.RepairReport
	for _, c := range collections {
		rep, err := a.content.Repair.Repair(ctx, c)
		if err != nil {
			fmt.Fprintf(stderr, "%srepair %s failed:%s %v\n", ColorRed, c, ColorReset, err)
			return 1
		}
		reports = append(reports, rep)
	}

	if *jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(reports)
		return 0
	}
	for _, rep := range reports {
		fmt.Fprintf(stdout, "%s✓%s %-10s %d moved\n", ColorGreen, ColorReset, rep.Collection, rep.Changed)
	}
	return 0
}

func runSeedCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	jsonOutput := cmd.Bool("json", false, "Output result as JSON")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: eventdesk seed [--json] <fixture.yaml>")
		return 2
	}

	fx, err := seed.LoadFile(cmd.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "%sseed failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}

	ctx := context.Background()
	a, err := openApp(ctx, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%sseed failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}
	defer a.close()

	s := &seed.Seeder{Content: a.content, Auth: a.auth, Logger: a.logger}
	rep, err := s.Apply(ctx, fx)
	if err != nil {
		fmt.Fprintf(stderr, "%sseed failed:%s %v\n", ColorRed, ColorReset, err)
		return 1
	}

	if *jsonOutput {
		_ = json.NewEncoder(stdout).Encode(rep)
		return 0
	}
	fmt.Fprintf(stdout, "%s✓%s seeded %d speakers, %d partners, %d team members, %d FAQ entries, %d admins\n",
		ColorGreen, ColorReset, rep.Speakers, rep.Partners, rep.Team, rep.FAQ, rep.Admins)
	for _, c := range rep.Skipped {
		fmt.Fprintf(stdout, "  skipped %s (not empty)\n", c)
	}
	return 0
}

func runHealthCmd(args []string, stdout, stderr io.Writer) int {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	cmd := flag.NewFlagSet("health", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	url := cmd.String("url", "http://localhost:"+port+"/health", "Health endpoint")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*url)
	if err != nil {
		fmt.Fprintf(stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(stderr, "Health check failed: status %d\n", resp.StatusCode)
		return 1
	}
	fmt.Fprintln(stdout, "OK")
	return 0
}
