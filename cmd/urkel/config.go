package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the optional TOML configuration. Flags override it.
//
//	[store]
//	path = "/var/lib/urkel"
//
//	[checkpoint]
//	issuer = "ledger.example.com"
//	key_file = "signer.pem"
//	pub_file = "signer.pub.pem"
type Config struct {
	Store      StoreConfig      `toml:"store"`
	Checkpoint CheckpointConfig `toml:"checkpoint"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type CheckpointConfig struct {
	Issuer  string `toml:"issuer"`
	KeyFile string `toml:"key_file"`
	PubFile string `toml:"pub_file"`
}

func LoadConfig(path string) (*Config, error) {
	var c Config
	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return &c, nil
}
