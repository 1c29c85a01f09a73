// Package config loads runtime settings from forge.yaml and FORGE_* env vars.
package config

import (
	"time"

	"github.com/spf13/viper"
	"go.trai.ch/zerr"
)

// Config captures runtime settings for the forge CLI.
type Config struct {
	// SourceRoot is the root of the source tree builder inputs resolve against.
	SourceRoot string `mapstructure:"source_root"`

	Cache CacheConfig `mapstructure:"cache"`
	Repo  RepoConfig  `mapstructure:"repo"`
	Test  TestConfig  `mapstructure:"test"`
	AWS   AWSConfig   `mapstructure:"aws"`
}

// CacheConfig selects and parameterizes the step cache backend.
type CacheConfig struct {
	// Backend is "local" or "redis".
	Backend string `mapstructure:"backend"`

	// Dir is the local cache root, also used to materialize remote artifacts.
	Dir string `mapstructure:"dir"`

	// RedisURL configures the redis backend.
	RedisURL string `mapstructure:"redis_url"`

	// Retention bounds remote entry lifetime; zero keeps entries until the
	// backend's own eviction policy removes them.
	Retention time.Duration `mapstructure:"retention"`
}

// RepoConfig points at the external package repository.
type RepoConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// TestConfig parameterizes the ephemeral test environments.
type TestConfig struct {
	// SuiteTimeout bounds one suite execution per resource.
	SuiteTimeout time.Duration `mapstructure:"suite_timeout"`

	// ProvisionAttempts bounds provisioning retries before surfacing failure.
	ProvisionAttempts int `mapstructure:"provision_attempts"`

	// PublicCIDR is the network the CI runner reaches resources from. It is
	// the CIDR written into access-grant entries. Autodetected when empty.
	PublicCIDR string `mapstructure:"public_cidr"`
}

// AWSConfig parameterizes the EC2 provider.
type AWSConfig struct {
	Region         string `mapstructure:"region"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	SecurityGroup  string `mapstructure:"security_group"`
	PrefixListID   string `mapstructure:"prefix_list_id"`
	KeyPairName    string `mapstructure:"key_pair_name"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	InstanceType   string `mapstructure:"instance_type"`

	// GrantCapacity is the provider-imposed maximum entry count of the
	// managed prefix list.
	GrantCapacity int `mapstructure:"grant_capacity"`
}

// Load reads configuration from defaults, forge.yaml, and FORGE_* env vars.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("forge")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("FORGE")
	v.AutomaticEnv()

	v.SetDefault("source_root", ".")
	v.SetDefault("cache.backend", "local")
	v.SetDefault("cache.dir", ".forge-cache")
	v.SetDefault("cache.retention", 14*24*time.Hour)
	v.SetDefault("repo.base_url", "https://packagecloud.io")
	v.SetDefault("test.suite_timeout", 40*time.Minute)
	v.SetDefault("test.provision_attempts", 4)
	v.SetDefault("aws.instance_type", "t2.small")
	v.SetDefault("aws.grant_capacity", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, zerr.Wrap(err, "failed to load config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, zerr.Wrap(err, "failed to unmarshal config")
	}

	return cfg, nil
}
