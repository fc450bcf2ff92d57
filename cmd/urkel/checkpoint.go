package main

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/forestrie/go-urkel/checkpoint"
)

var (
	ckKeyFile string
	ckPubFile string
	ckIssuer  string
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Sign and verify root attestations",
	Long: `Commands for signed checkpoints: COSE Sign1 attestations binding a
published root to the store identity and commit version.`,
}

var checkpointSignCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign the currently published root",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyFile := ckKeyFile
		if keyFile == "" {
			keyFile = cfg.Checkpoint.KeyFile
		}
		if keyFile == "" {
			return fmt.Errorf("a signing key is required (--key or config)")
		}
		issuer := ckIssuer
		if issuer == "" {
			issuer = cfg.Checkpoint.Issuer
		}
		key, err := loadSigningKey(keyFile)
		if err != nil {
			return err
		}

		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		signer, err := checkpoint.NewSigner(issuer, key)
		if err != nil {
			return err
		}
		signed, err := signer.Sign(checkpoint.StateOf(tree))
		if err != nil {
			return err
		}
		fmt.Printf("%x\n", signed)
		return nil
	},
}

var checkpointVerifyCmd = &cobra.Command{
	Use:   "verify <checkpoint-hex>",
	Short: "Verify a signed checkpoint",
	Long: `Verify a signed checkpoint against a public key. No store is
needed; on success the attested identity, root and version are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pubFile := ckPubFile
		if pubFile == "" {
			pubFile = cfg.Checkpoint.PubFile
		}
		if pubFile == "" {
			return fmt.Errorf("a public key is required (--pub or config)")
		}
		pub, err := loadVerifyingKey(pubFile)
		if err != nil {
			return err
		}
		signed, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("decoding checkpoint: %w", err)
		}

		state, err := checkpoint.Verify(signed, pub)
		if err != nil {
			return err
		}
		id, err := state.ID()
		if err != nil {
			return err
		}
		root, err := state.RootHash()
		if err != nil {
			return err
		}
		fmt.Printf("id:      %s\n", id)
		fmt.Printf("root:    %x\n", root)
		fmt.Printf("version: %d\n", state.Version)
		fmt.Printf("signed:  %s\n", time.UnixMilli(state.Timestamp).UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	checkpointCmd.AddCommand(checkpointSignCmd)
	checkpointCmd.AddCommand(checkpointVerifyCmd)

	checkpointSignCmd.Flags().StringVar(&ckKeyFile, "key", "", "EC private key file (PEM)")
	checkpointSignCmd.Flags().StringVar(&ckIssuer, "issuer", "", "issuer identity for the protected headers")
	checkpointVerifyCmd.Flags().StringVar(&ckPubFile, "pub", "", "public key file (PEM)")
}
