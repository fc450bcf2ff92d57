package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forestrie/go-urkel/urkel"
)

var (
	valueHex  bool
	atRootHex string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store identity, root and version",
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		root := tree.Root()
		fmt.Printf("store:   %s\n", storeDir)
		fmt.Printf("id:      %s\n", tree.ID())
		fmt.Printf("root:    %x\n", root)
		fmt.Printf("version: %d\n", tree.Version())
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set <key-hex> <value>",
	Short: "Insert or overwrite a key and commit",
	Long: `Insert or overwrite a key and commit the result as a new root.

The value is taken literally unless --hex is given.

Example:
  urkel set $(printf '01%.0s' {1..32}) hello`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		value := []byte(args[1])
		if valueHex {
			if value, err = hex.DecodeString(args[1]); err != nil {
				return fmt.Errorf("decoding value: %w", err)
			}
		}

		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		tx, err := tree.Transaction()
		if err != nil {
			return err
		}
		if err := tx.Insert(key, value); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		fmt.Printf("%x\n", tree.Root())
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key-hex>",
	Short: "Read the value for a key",
	Long: `Read the value for a key, from the published root or from a
historical root given with --root.`,
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

		tx, err := txAt(tree)
		if err != nil {
			return err
		}
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		if v == nil {
			return fmt.Errorf("key not found")
		}
		if valueHex {
			fmt.Printf("%x\n", v)
		} else {
			fmt.Printf("%s\n", v)
		}
		return nil
	},
}

var delCmd = &cobra.Command{
	Use:   "del <key-hex>",
	Short: "Remove a key and commit",
	Args:  cobra.ExactArgs(1),
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

		tx, err := tree.Transaction()
		if err != nil {
			return err
		}
		if err := tx.Remove(key); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		fmt.Printf("%x\n", tree.Root())
		return nil
	},
}

var iterateCmd = &cobra.Command{
	Use:   "iterate",
	Short: "List all key-value pairs in trie order",
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		root := tree.Root()
		if atRootHex != "" {
			if root, err = parseRoot(atRootHex); err != nil {
				return err
			}
		}
		it, err := tree.Iterate(root)
		if err != nil {
			return err
		}
		for it.Next() {
			if valueHex {
				fmt.Printf("%x\t%x\n", it.Key(), it.Value())
			} else {
				fmt.Printf("%x\t%s\n", it.Key(), it.Value())
			}
		}
		return it.Err()
	},
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Remove the store from disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		return urkel.Destroy(storeDir)
	},
}

// txAt anchors a read transaction at --root when given, the published root
// otherwise.
func txAt(tree *urkel.Tree) (*urkel.Tx, error) {
	if atRootHex == "" {
		return tree.Transaction()
	}
	root, err := parseRoot(atRootHex)
	if err != nil {
		return nil, err
	}
	return tree.TransactionAt(root)
}

func init() {
	setCmd.Flags().BoolVar(&valueHex, "hex", false, "treat the value as hex")
	getCmd.Flags().BoolVar(&valueHex, "hex", false, "print the value as hex")
	getCmd.Flags().StringVar(&atRootHex, "root", "", "read at a historical root")
	iterateCmd.Flags().BoolVar(&valueHex, "hex", false, "print values as hex")
	iterateCmd.Flags().StringVar(&atRootHex, "root", "", "iterate a historical root")
}
