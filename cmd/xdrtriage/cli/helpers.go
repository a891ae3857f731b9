package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xdrtriage/xdrtriage/internal/classify"
	"github.com/xdrtriage/xdrtriage/internal/config"
	"github.com/xdrtriage/xdrtriage/internal/logging"
	"github.com/xdrtriage/xdrtriage/internal/splunk"
	"github.com/xdrtriage/xdrtriage/internal/triage"
	"github.com/xdrtriage/xdrtriage/internal/vault"
	"github.com/xdrtriage/xdrtriage/internal/xdr"
)

var configPath string

// AddGlobalFlags registers flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "path to the properties file")
}

// runtime is everything a workflow command needs after bootstrap.
type runtime struct {
	cfg    *config.Config
	logger zerolog.Logger
	orch   *triage.Orchestrator
}

// newRuntime loads configuration, unlocks the vault when enabled,
// authenticates, and wires the orchestrator. Configuration and auth
// failures are fatal for the command; nothing network-facing runs
// before validation passes.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.Triage.LogLevel)

	if cfg.Triage.Vault {
		if err := unlockVaultInto(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := xdr.NewClient(xdr.Config{
		AuthURL:   cfg.XDR.AuthURL,
		APIURL:    cfg.XDR.APIURL,
		ClientID:  cfg.XDR.ClientID,
		AccessKey: cfg.XDR.AccessKey,
		ClientKey: cfg.XDR.ClientKey,
		UserEmail: cfg.XDR.UserEmail,
	}, logger)

	session, err := client.Authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticating: %w", err)
	}
	logger.Info().
		Str("token", logging.RedactValue(session.Token)).
		Str("expires", session.Expires).
		Msg("token obtained")

	forwarder, err := splunk.NewForwarder(splunk.Config{
		URL:      cfg.Splunk.URL,
		Token:    cfg.Splunk.Token,
		Insecure: cfg.Splunk.Insecure,
	}, logger)
	if err != nil {
		return nil, err
	}

	orch := triage.New(triage.Config{
		API:          client,
		Forwarder:    forwarder,
		Session:      session,
		DangerousIPs: cfg.Triage.DangerousIPs,
		Logger:       logger,
	})

	return &runtime{cfg: cfg, logger: logger, orch: orch}, nil
}

// unlockVaultInto prompts for the vault passphrase and overlays stored
// secrets onto the config.
func unlockVaultInto(cfg *config.Config) error {
	pass, err := promptPassphrase("Vault passphrase: ")
	if err != nil {
		return err
	}

	v, err := vault.Open(cfg.Triage.VaultPath, pass)
	if err != nil {
		return fmt.Errorf("opening vault: %w", err)
	}

	for _, key := range config.VaultManagedKeys {
		if !v.Has(key) {
			continue
		}
		value, err := v.Get(key)
		if err != nil {
			return fmt.Errorf("reading vault entry %s: %w", key, err)
		}
		cfg.ApplyVaultEntry(key, value)
	}
	return nil
}

func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	fmt.Fprintln(os.Stderr)
	return string(passBytes), nil
}

// confirmWith asks for the literal word yes before a destructive batch
// runs. Anything else declines.
func confirmWith(r *bufio.Reader, action string) bool {
	fmt.Fprintf(os.Stderr, "%s\nType 'yes' to continue: ", action)
	line, err := r.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

func confirm(action string) bool {
	return confirmWith(bufio.NewReader(os.Stdin), action)
}

func checkSeverity(flag, value string) error {
	if !classify.KnownSeverity(value) {
		return fmt.Errorf("--%s must be one of: %s", flag, strings.Join(classify.Severities, ", "))
	}
	return nil
}

// printIncidentTable renders list rows the way the SOC is used to seeing
// them, highlighting high and critical severities.
func printIncidentTable(incidents []xdr.IncidentSummary) {
	if len(incidents) == 0 {
		fmt.Println("No matching incidents in the window.")
		return
	}

	fmt.Printf("%-22s %-12s %-50s %-26s %-10s %-12s\n",
		"Incident ID", "Display ID", "Summary", "Updated", "Severity", "Status")
	fmt.Println(strings.Repeat("=", 136))
	for _, inc := range incidents {
		severity := inc.Severity
		if classify.SeverityAtLeast(severity, classify.SeverityHigh) {
			severity = "\033[91m" + severity + "\033[0m"
		}
		fmt.Printf("%-22s %-12s %-50s %-26s %-10s %-12s\n",
			inc.ID, inc.DisplayID, truncate(inc.Summary, 50), inc.UpdatedAt, severity, inc.Status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
