// Copyright 2026 Contributors to the scprovision project.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "SCPROVISION"
	DefaultUpdateSite = "downloads.nessus.org"

	configName = "scprovision"
)

type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Login           LoginConfig           `mapstructure:"login"`
	License         LicenseConfig         `mapstructure:"license"`
	Nessus          NessusConfig          `mapstructure:"nessus"`
	Admin           AdminConfig           `mapstructure:"admin"`
	ScanZone        ScanZoneConfig        `mapstructure:"scan_zone"`
	Organization    OrganizationConfig    `mapstructure:"organization"`
	Repository      RepositoryConfig      `mapstructure:"repository"`
	SecurityManager SecurityManagerConfig `mapstructure:"security_manager"`
	Log             LogConfig             `mapstructure:"log"`
}

type ServerConfig struct {
	// Address is a host[:port] or an absolute http(s) URL.
	Address   string        `mapstructure:"address"`
	VerifyTLS bool          `mapstructure:"verify_tls"`
	CACerts   []string      `mapstructure:"ca_certs"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// LoginConfig holds the credentials of a fresh installation's administrator.
type LoginConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LicenseConfig struct {
	Path string `mapstructure:"path"`
}

type NessusConfig struct {
	ActivationCode string `mapstructure:"activation_code"`
	UpdateSite     string `mapstructure:"update_site"`
	Name           string `mapstructure:"name"`
	IP             string `mapstructure:"ip"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`

	// Port is left empty to use the Nessus default.
	Port string `mapstructure:"port"`
}

type AdminConfig struct {
	NewPassword string `mapstructure:"new_password"`
}

type ScanZoneConfig struct {
	Name  string `mapstructure:"name"`
	Range string `mapstructure:"range"`
}

type OrganizationConfig struct {
	Name string `mapstructure:"name"`
}

type RepositoryConfig struct {
	Name    string `mapstructure:"name"`
	IPRange string `mapstructure:"ip_range"`
}

type SecurityManagerConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "")
	v.SetDefault("server.verify_tls", false)
	v.SetDefault("server.ca_certs", []string{})
	v.SetDefault("server.timeout", "60s")

	v.SetDefault("login.username", "admin")
	v.SetDefault("login.password", "admin")

	v.SetDefault("license.path", "")

	v.SetDefault("nessus.activation_code", "")
	v.SetDefault("nessus.update_site", DefaultUpdateSite)
	v.SetDefault("nessus.name", "Nessus Scanner")
	v.SetDefault("nessus.ip", "")
	v.SetDefault("nessus.username", "")
	v.SetDefault("nessus.password", "")
	v.SetDefault("nessus.port", "")

	v.SetDefault("admin.new_password", "")

	v.SetDefault("scan_zone.name", "")
	v.SetDefault("scan_zone.range", "0.0.0.0/0")

	v.SetDefault("organization.name", "Test Org")

	v.SetDefault("repository.name", "Test Repo")
	v.SetDefault("repository.ip_range", "0.0.0.0/0")

	v.SetDefault("security_manager.username", "secman")
	v.SetDefault("security_manager.password", "password")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "auto")
}

// Load reads the configuration from path or, when path is empty, from
// scprovision.yaml in the working directory or $HOME/.config/scprovision.
// A missing default file is not an error: every key can also come from the
// environment (SCPROVISION_SERVER_ADDRESS, ...), including a .env file.
// The result is validated.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/scprovision")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
