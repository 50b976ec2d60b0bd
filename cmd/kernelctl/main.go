// Command kernelctl is the verifier CLI surface: it replays a sealed
// session's recorded artifacts and reports whether every self-hash,
// binding, evidence-chain link, policy evaluation, and attestation
// signature still checks out.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/clawforge/kernel/pkg/replay"
	"github.com/clawforge/kernel/pkg/wireschema"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the CLI entrypoint, separated from main for testability. Exit
// codes: 0 = PASS, 1 = usage error, 3 = verification FAIL.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 1
	}

	switch args[1] {
	case "verify":
		return runVerify(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "kernelctl verify --bundle <path>  replay and verify a sealed session bundle")
	fmt.Fprintln(w, "kernelctl help                     show this message")
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var bundlePath string
	cmd.StringVar(&bundlePath, "bundle", "", "path to a JSON-encoded replay bundle (required)")
	if err := cmd.Parse(args); err != nil {
		return 1
	}
	if bundlePath == "" {
		fmt.Fprintln(stderr, "error: --bundle is required")
		return 1
	}

	data, err := os.ReadFile(bundlePath)
	if err != nil {
		fmt.Fprintf(stderr, "error: cannot read bundle: %v\n", err)
		return 1
	}

	if err := wireschema.ValidateReplayBundle(data); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	var bundle replay.Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		fmt.Fprintf(stderr, "error: cannot parse bundle: %v\n", err)
		return 1
	}

	result := replay.ReplaySession(bundle)

	report, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "error: cannot encode report: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(report))

	if !result.DeterministicReplayPassed {
		return 3
	}
	return 0
}
