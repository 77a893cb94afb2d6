package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vultisig/vultisig-sdk-core/internal/container"
	"github.com/vultisig/vultisig-sdk-core/internal/mpc"
	"github.com/vultisig/vultisig-sdk-core/internal/util"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultcore"
	"github.com/vultisig/vultisig-sdk-core/internal/vaultstore"
	"github.com/vultisig/vultisig-sdk-core/pkg/client"
)

// version is set at build time.
// Build with: go build -ldflags "-X main.version=<version>"
var version = "dev"

// showFirstRunMessage displays a welcome message for first-time users.
func showFirstRunMessage() {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return
	}
	appDir := filepath.Join(configDir, "vultcore")
	// #nosec G301 - standard config directory permissions
	if err := os.MkdirAll(appDir, 0o750); err != nil {
		return
	}
	firstRunFile := filepath.Join(appDir, ".installed")
	if _, err := os.Stat(firstRunFile); err == nil {
		return
	}

	fmt.Println("\nvultcore installed successfully!")
	fmt.Printf("Version: %s\n", version)
	fmt.Println("\nNext steps:")
	fmt.Println("  vultcore --help                    # Show all available commands")
	fmt.Println("  vultcore inspect -f file.vult       # Inspect a vault")
	fmt.Println("  vultcore list                      # List stored vaults")
	fmt.Println()

	// #nosec G304 - firstRunFile is safely constructed from UserConfigDir
	if f, err := os.Create(firstRunFile); err == nil {
		_ = f.Close()
	}
}

func newStore() *client.Client {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dir := filepath.Join(home, ".vultcore", "vaults")
	backend := vaultstore.NewFileBackend(dir)
	relayURL := os.Getenv("VULTCORE_RELAY_URL")
	if relayURL == "" {
		relayURL = "https://api.vultisig.com/router"
	}
	return client.New(backend, relayURL)
}

func main() {
	showFirstRunMessage()

	rootCmd := &cobra.Command{
		Use:     "vultcore",
		Version: version,
		Short:   "vultcore - CLI for non-custodial multi-party-computation vault operations",
		Long:    `A CLI for inspecting, importing, exporting, listing, and deleting .vult vault containers in local storage.`,
		Run: func(cmd *cobra.Command, args []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("error showing help: %v\n", err)
			}
		},
	}

	var (
		vaultFile string
		password  string
		format    string
	)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect a .vult vault container",
		Long:  `Decode a .vult vault container and print its metadata (name, public keys, signers, threshold).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vaultFile == "" {
				return fmt.Errorf("--vault is required")
			}
			raw, err := os.ReadFile(vaultFile)
			if err != nil {
				return fmt.Errorf("reading vault file: %w", err)
			}

			pw := password
			encrypted, err := container.IsEncrypted(string(raw))
			if err != nil {
				return fmt.Errorf("parsing vault container: %w", err)
			}
			if encrypted && pw == "" {
				pw, err = util.PromptPassword(vaultFile)
				if err != nil {
					return err
				}
			}

			v, err := container.Decode(string(raw), pw)
			if err != nil {
				return fmt.Errorf("decoding vault: %w", err)
			}

			return util.OutputResult(summaryOf(v), format, os.Stdout)
		},
	}
	inspectCmd.Flags().StringVarP(&vaultFile, "vault", "f", "", "Path to the .vult vault file (required)")
	inspectCmd.Flags().StringVar(&password, "password", "", "Password for encrypted vault files (alternative to interactive prompt)")
	inspectCmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")
	_ = inspectCmd.MarkFlagRequired("vault")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a .vult vault file into local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if vaultFile == "" {
				return fmt.Errorf("--vault is required")
			}
			raw, err := os.ReadFile(vaultFile)
			if err != nil {
				return fmt.Errorf("reading vault file: %w", err)
			}
			c := newStore()
			v, err := c.Import(cmd.Context(), string(raw), password)
			if err != nil {
				return fmt.Errorf("importing vault: %w", err)
			}
			fmt.Printf("Imported vault %q (%s)\n", v.Name, v.ID)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&vaultFile, "vault", "f", "", "Path to the .vult vault file (required)")
	importCmd.Flags().StringVar(&password, "password", "", "Password for encrypted vault files")
	_ = importCmd.MarkFlagRequired("vault")

	var exportOut string
	exportCmd := &cobra.Command{
		Use:   "export <vault-id>",
		Short: "Export a stored vault to a .vult file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newStore()
			containerB64, err := c.Export(cmd.Context(), args[0], password)
			if err != nil {
				return fmt.Errorf("exporting vault: %w", err)
			}
			if exportOut == "" {
				fmt.Println(containerB64)
				return nil
			}
			if err := os.WriteFile(exportOut, []byte(containerB64), 0o600); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}
			fmt.Printf("Vault exported to: %s\n", exportOut)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&password, "password", "", "Password to encrypt the exported container")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default: print to stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored vaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newStore()
			vaults, err := c.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing vaults: %w", err)
			}
			summaries := make([]map[string]any, len(vaults))
			for i, v := range vaults {
				summaries[i] = summaryOf(v)
			}
			return util.OutputResult(summaries, format, os.Stdout)
		},
	}
	listCmd.Flags().StringVar(&format, "format", "json", "Output format: json or yaml")

	deleteCmd := &cobra.Command{
		Use:   "delete <vault-id>",
		Short: "Delete a stored vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newStore()
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting vault: %w", err)
			}
			fmt.Printf("Deleted vault %s\n", args[0])
			return nil
		},
	}

	rootCmd.AddCommand(inspectCmd, importCmd, exportCmd, listCmd, deleteCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// summaryOf reduces a vault to the fields worth printing from the CLI,
// avoiding a raw dump of key share bytes. For legacy GG20 vaults it also
// surfaces each key share's read-only metadata (chain code, share id) via
// mpc.InspectGG20Share, never the reconstructable private key.
func summaryOf(v *client.Vault) map[string]any {
	summary := map[string]any{
		"id":                v.ID,
		"name":              v.Name,
		"type":              v.Type(),
		"threshold":         v.Threshold(),
		"signers":           v.Signers,
		"public_key_ecdsa":  v.PublicKeys.ECDSA,
		"public_key_eddsa":  v.PublicKeys.EdDSA,
		"lib_type":          v.LibType.String(),
	}

	if v.LibType == vaultcore.LibGG20 {
		shares := map[string]mpc.GG20Info{}
		for alg, raw := range v.KeyShares {
			info, err := mpc.InspectGG20Share(alg, raw)
			if err != nil {
				continue
			}
			shares[string(alg)] = info
		}
		summary["gg20_shares"] = shares
	}

	return summary
}
