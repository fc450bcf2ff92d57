package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage checkpoint signing keys",
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a checkpoint signing keypair",
	Long: `Generate an ECDSA P-256 keypair for checkpoint signing, written as
<name>.pem (private) and <name>.pub.pem (public).

Example:
  urkel keys generate signer
  urkel checkpoint sign --key signer.pem`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return err
		}

		der, err := x509.MarshalECPrivateKey(key)
		if err != nil {
			return err
		}
		priv := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
		if err := os.WriteFile(args[0]+".pem", priv, 0o600); err != nil {
			return err
		}

		der, err = x509.MarshalPKIXPublicKey(&key.PublicKey)
		if err != nil {
			return err
		}
		pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
		if err := os.WriteFile(args[0]+".pub.pem", pub, 0o644); err != nil {
			return err
		}

		fmt.Printf("wrote %s.pem and %s.pub.pem\n", args[0], args[0])
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysGenerateCmd)
}

func loadSigningKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != "EC PRIVATE KEY" {
		return nil, fmt.Errorf("%s: expected an EC PRIVATE KEY PEM block", path)
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

func loadVerifyingKey(path string) (*ecdsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("%s: expected a PUBLIC KEY PEM block", path)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	ec, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: not an ECDSA public key", path)
	}
	return ec, nil
}
