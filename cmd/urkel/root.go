package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forestrie/go-urkel/urkel"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	GitCommit = "unknown"

	// Global flags
	cfgFile  string
	storeDir string
	verbose  bool

	cfg    Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "urkel",
	Short: "Authenticated key-value store",
	Long: `urkel manages an authenticated key-value store: a merkelized radix
tree over 256-bit keys whose root hash commits to the entire contents.

Every commit publishes a new root. Proofs of (non-)membership produced
against any retained root verify offline against the root hash alone.`,
	Version:           fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (TOML)")
	rootCmd.PersistentFlags().StringVarP(&storeDir, "store", "s", "urkel-db", "store directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(iterateCmd)
	rootCmd.AddCommand(proveCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(keysCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		c, err := LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = *c
		if cfg.Store.Path != "" && !cmd.Flags().Changed("store") {
			storeDir = cfg.Store.Path
		}
	}
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
	}
	return nil
}

func openTree() (*urkel.Tree, error) {
	tree, err := urkel.Open(storeDir, urkel.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", storeDir, err)
	}
	return tree, nil
}

// parseKey decodes a 64 character hex key argument.
func parseKey(s string) (urkel.Key, error) {
	var k urkel.Key
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != urkel.KeyBytes {
		return k, fmt.Errorf("key must be %d hex encoded bytes", urkel.KeyBytes)
	}
	copy(k[:], b)
	return k, nil
}

func parseRoot(s string) (urkel.Hash, error) {
	var h urkel.Hash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != urkel.HashBytes {
		return h, fmt.Errorf("root must be %d hex encoded bytes", urkel.HashBytes)
	}
	copy(h[:], b)
	return h, nil
}
