package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xdrtriage/xdrtriage/internal/triage"
)

// RegisterShellCommands adds the interactive menu. One authentication
// serves the whole session; the token is reused until exit.
func RegisterShellCommands(root *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive triage menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			return runShell(cmd, rt)
		},
	}

	root.AddCommand(cmd)
}

func runShell(cmd *cobra.Command, rt *runtime) error {
	ctx := cmd.Context()
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println()
		fmt.Println("xdrtriage")
		fmt.Println(" 1) List incidents by minimum severity")
		fmt.Println(" 2) Close incidents by maximum severity")
		fmt.Println(" 3) Close incidents with dangerous IPs")
		fmt.Println(" 4) Show incident detail")
		fmt.Println(" 5) Forward high/critical incident detail")
		fmt.Println(" 6) Run combined sweep")
		fmt.Println(" 0) Exit")
		fmt.Print("> ")

		choice, err := reader.ReadString('\n')
		if err != nil {
			return nil // EOF ends the session
		}

		switch strings.TrimSpace(choice) {
		case "1":
			floor := promptSeverity(reader, "Minimum severity")
			hours := promptHours(reader)
			matched, err := rt.orch.Report(ctx, triage.ListOptions{HoursBack: hours}, floor)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printIncidentTable(matched)

		case "2":
			ceiling := promptSeverity(reader, "Maximum severity")
			hours := promptHours(reader)
			if !confirmWith(reader, fmt.Sprintf(
				"About to comment on and close every open incident of severity <= %s in the last %dh.", ceiling, hours)) {
				fmt.Println("Aborted.")
				continue
			}
			result, err := rt.orch.CloseBySeverity(ctx, triage.ListOptions{HoursBack: hours}, ceiling)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printCloseResult(result)

		case "3":
			if len(rt.cfg.Triage.DangerousIPs) == 0 {
				fmt.Println("No dangerous IPs configured (triage.dangerous_ips).")
				continue
			}
			hours := promptHours(reader)
			if !confirmWith(reader, fmt.Sprintf(
				"About to comment on and close every open incident touching the dangerous-IP list in the last %dh.", hours)) {
				fmt.Println("Aborted.")
				continue
			}
			result, err := rt.orch.CloseByDangerousIP(ctx, triage.ListOptions{HoursBack: hours})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			printCloseResult(result)

		case "4":
			fmt.Print("Incident id: ")
			id, err := reader.ReadString('\n')
			if err != nil {
				return nil
			}
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			detail, err := rt.orch.Detail(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			pretty, _ := json.MarshalIndent(json.RawMessage(detail.Raw), "", "  ")
			fmt.Println(string(pretty))

		case "5":
			hours := promptHours(reader)
			result, err := rt.orch.ForwardBySeverity(ctx, triage.ListOptions{HoursBack: hours})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("Forwarded %d critical, %d high incident(s).\n",
				result.Forwarded["critical"], result.Forwarded["high"])

		case "6":
			hours := promptHours(reader)
			if !confirmWith(reader, fmt.Sprintf(
				"The sweep closes every open incident touching the dangerous-IP list in the last %dh.", hours)) {
				fmt.Println("Aborted.")
				continue
			}
			result, err := rt.orch.Sweep(ctx, triage.ListOptions{HoursBack: hours})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				continue
			}
			fmt.Printf("Forwarded %d, closed %d incident(s).\n", result.Forwarded, result.Closed)

		case "0", "exit", "quit":
			return nil

		default:
			fmt.Println("Unknown option.")
		}
	}
}

// promptHours asks for a positive hour count, re-prompting on anything
// non-numeric rather than aborting.
func promptHours(r *bufio.Reader) int {
	for {
		fmt.Print("Hours back [6]: ")
		line, err := r.ReadString('\n')
		if err != nil {
			return 6
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return 6
		}
		hours, err := strconv.Atoi(line)
		if err != nil || hours <= 0 {
			fmt.Println("Enter a positive number of hours.")
			continue
		}
		return hours
	}
}

func promptSeverity(r *bufio.Reader, label string) string {
	for {
		fmt.Printf("%s (informational/low/medium/high/critical): ", label)
		line, err := r.ReadString('\n')
		if err != nil {
			return "informational"
		}
		line = strings.ToLower(strings.TrimSpace(line))
		if checkSeverity("severity", line) == nil {
			return line
		}
		fmt.Println("Unknown severity.")
	}
}
