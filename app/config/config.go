package config

import (
	"flag"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"migrator/app/storage/database"
	"migrator/pkg/log"
)

const (
	defaultConfigPath = "./configs/config.yaml"

	defaultRestAddr        = ":8000"
	defaultMigrationsTable = "migrator_schema_migrations"

	defaultCheckInterval  = 15 // seconds
	defaultCollectibleGas = 450000
)

type Ethereum struct {
	NodeUrl string `mapstructure:"nodeUrl"`
	ChainID int64  `mapstructure:"chainId"`
}

func (e *Ethereum) Validate() error {
	if e.NodeUrl == "" {
		return errors.New("you must provide eth node url in a config")
	}

	if e.ChainID == 0 {
		return errors.New("you must provide eth chain id in a config")
	}

	return nil
}

type Secrets struct {
	API   string `mapstructure:"api"`
	Token string `mapstructure:"token"`
}

func (s *Secrets) Validate() error {
	if s.API == "" || s.Token == "" {
		return errors.New("you must provide secrets in a config")
	}
	return nil
}

// Migration tunes the transfer pipeline.
type Migration struct {
	// CheckIntervalSec is how often the watcher polls pending transactions.
	CheckIntervalSec uint64 `mapstructure:"checkIntervalSec"`
	// CollectibleGas is the gas limit used for ERC721 transfers; they are
	// not estimated against the node.
	CollectibleGas uint64 `mapstructure:"collectibleGas"`
}

func (m *Migration) Validate() error {
	if m.CheckIntervalSec == 0 {
		return errors.New("you must provide a transfer check interval in a config")
	}

	if m.CollectibleGas == 0 {
		return errors.New("you must provide a collectible gas limit in a config")
	}

	return nil
}

// Collectibles points at the collectible registry sidecar.
type Collectibles struct {
	BasePath string `mapstructure:"basePath"`
	ApiKey   string `mapstructure:"apiKey"`
}

func (c *Collectibles) Validate() error {
	if c.BasePath == "" {
		return errors.New("you must provide base path for the collectible registry")
	}

	if c.ApiKey == "" {
		return errors.New("you must provide api key for the collectible registry")
	}

	return nil
}

type Config struct {
	RestAddr     string          `mapstructure:"restAddr"`
	Ethereum     Ethereum        `mapstructure:"ethereum"`
	Secrets      Secrets         `mapstructure:"secrets"`
	Database     database.Config `mapstructure:"database"`
	Logging      log.Config      `mapstructure:"log"`
	Migration    Migration       `mapstructure:"migration"`
	Collectibles Collectibles    `mapstructure:"collectibles"`
}

func Parse() (*Config, error) {
	configPath := flag.String("config", defaultConfigPath, "configuration file path")
	flag.Parse()

	// set reasonable defaults
	viper.SetDefault("restAddr", defaultRestAddr)
	viper.SetDefault("database.migrationsTable", defaultMigrationsTable)
	viper.SetDefault("migration.checkIntervalSec", defaultCheckInterval)
	viper.SetDefault("migration.collectibleGas", defaultCollectibleGas)

	// read a config file
	viper.SetConfigFile(*configPath)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, "failed to read a file")
	}

	// unmarshal to a config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal a config")
	}

	// ensure ethereum config is valid
	if err := cfg.Ethereum.Validate(); err != nil {
		return nil, err
	}

	// ensure secrets are provided
	if err := cfg.Secrets.Validate(); err != nil {
		return nil, err
	}

	// ensure pipeline tuning is provided
	if err := cfg.Migration.Validate(); err != nil {
		return nil, err
	}

	// ensure the collectible registry is configured
	if err := cfg.Collectibles.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
