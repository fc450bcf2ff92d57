package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forestrie/go-urkel/urkel"
)

var (
	proveRootHex string
	proveOut     string
)

var proveCmd = &cobra.Command{
	Use:   "prove <key-hex>",
	Short: "Build a membership or non-membership proof",
	Long: `Build a proof for a key against the published root, or against a
historical root given with --root. The proof is printed as hex, or written
raw with --out.

Example:
  urkel prove 0101...01 --root e43a...
  urkel verify 0101...01 e43a... $(urkel prove 0101...01)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}

		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		root := tree.Root()
		if proveRootHex != "" {
			if root, err = parseRoot(proveRootHex); err != nil {
				return err
			}
		}
		p, err := tree.Prove(key, root)
		if err != nil {
			return err
		}
		raw, err := p.MarshalBinary()
		if err != nil {
			return err
		}
		if proveOut != "" {
			return os.WriteFile(proveOut, raw, 0o644)
		}
		fmt.Printf("%x\n", raw)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <key-hex> <root-hex> <proof-hex>",
	Short: "Verify a proof against a trusted root",
	Long: `Verify a proof against a trusted root hash. No store is needed.

On success the proven value is printed for an inclusion, or "absent" for a
verified exclusion. Any other outcome fails.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		root, err := parseRoot(args[1])
		if err != nil {
			return err
		}
		raw, err := hex.DecodeString(args[2])
		if err != nil {
			return fmt.Errorf("decoding proof: %w", err)
		}

		v, err := urkel.Verify(raw, key, root)
		if err != nil {
			return err
		}
		if v == nil {
			fmt.Println("absent")
			return nil
		}
		if valueHex {
			fmt.Printf("%x\n", v)
		} else {
			fmt.Printf("%s\n", v)
		}
		return nil
	},
}

func init() {
	proveCmd.Flags().StringVar(&proveRootHex, "root", "", "prove against a historical root")
	proveCmd.Flags().StringVar(&proveOut, "out", "", "write the raw proof to a file")
	verifyCmd.Flags().BoolVar(&valueHex, "hex", false, "print the value as hex")
}
