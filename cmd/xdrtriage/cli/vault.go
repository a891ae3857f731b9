package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xdrtriage/xdrtriage/internal/config"
	"github.com/xdrtriage/xdrtriage/internal/vault"
)

// RegisterVaultCommands adds credential vault management. These commands
// only touch the vault file; they never contact the XDR API.
func RegisterVaultCommands(root *cobra.Command) {
	vaultCmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage the encrypted credential store",
	}

	vaultCmd.AddCommand(newVaultInitCmd())
	vaultCmd.AddCommand(newVaultSetCmd())
	vaultCmd.AddCommand(newVaultKeysCmd())

	root.AddCommand(vaultCmd)
}

// vaultPath resolves the vault location from config without requiring
// the rest of the config to validate.
func vaultPath() (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", err
	}
	return cfg.Triage.VaultPath, nil
}

func newVaultInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := vaultPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("vault already exists at %s", path)
			}

			pass, err := promptPassphrase("New vault passphrase: ")
			if err != nil {
				return err
			}
			again, err := promptPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if pass != again {
				return fmt.Errorf("passphrases do not match")
			}
			if pass == "" {
				return fmt.Errorf("passphrase must not be empty")
			}

			if _, err := vault.Create(path, pass); err != nil {
				return fmt.Errorf("creating vault: %w", err)
			}
			fmt.Printf("Vault created at %s\n", path)
			return nil
		},
	}
}

func newVaultSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key>",
		Short: "Store a secret under one of the managed keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !isManagedKey(key) {
				return fmt.Errorf("unknown vault key %q, expected one of: %s",
					key, strings.Join(config.VaultManagedKeys, ", "))
			}

			path, err := vaultPath()
			if err != nil {
				return err
			}

			pass, err := promptPassphrase("Vault passphrase: ")
			if err != nil {
				return err
			}
			v, err := vault.Open(path, pass)
			if err != nil {
				return fmt.Errorf("opening vault: %w", err)
			}

			value, err := promptPassphrase(fmt.Sprintf("Value for %s: ", key))
			if err != nil {
				return err
			}
			if value == "" {
				return fmt.Errorf("value must not be empty")
			}

			if err := v.Set(key, value); err != nil {
				return fmt.Errorf("storing vault entry: %w", err)
			}
			fmt.Printf("Stored %s\n", key)
			return nil
		},
	}
}

func newVaultKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List stored entry names",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := vaultPath()
			if err != nil {
				return err
			}

			pass, err := promptPassphrase("Vault passphrase: ")
			if err != nil {
				return err
			}
			v, err := vault.Open(path, pass)
			if err != nil {
				return fmt.Errorf("opening vault: %w", err)
			}

			keys := v.Keys()
			if len(keys) == 0 {
				fmt.Println("Vault is empty.")
				return nil
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
}

func isManagedKey(key string) bool {
	for _, k := range config.VaultManagedKeys {
		if k == key {
			return true
		}
	}
	return false
}
