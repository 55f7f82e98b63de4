// Package config loads runtime settings from flags and FOLLOWCHECK_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "FOLLOWCHECK"

	KeyHost           = "host"
	KeyPort           = "port"
	KeyDataDir        = "data-dir"
	KeyInMemory       = "in-memory"
	KeyMaxUploadBytes = "max-upload-bytes"
	KeyDebug          = "debug"

	DefaultHost           = "127.0.0.1"
	DefaultPort           = 8080
	DefaultDataDir        = "followcheck-data"
	DefaultMaxUploadBytes = 512 << 20

	flagHostDescription           = "Host interface for the HTTP server"
	flagPortDescription           = "Port for the HTTP server"
	flagDataDirDescription        = "Directory holding the persisted snapshot"
	flagInMemoryDescription       = "Keep the snapshot in memory only"
	flagMaxUploadBytesDescription = "Largest accepted archive upload in bytes"
	flagDebugDescription          = "Enable development logging"
	errMessageUnmarshalConfig     = "decode configuration"
	errMessageInvalidConfig       = "invalid configuration"
	errMessageBindFlag            = "bind flag"
)

// Config holds the settings shared by the commands.
type Config struct {
	Host           string `mapstructure:"host" validate:"required"`
	Port           int    `mapstructure:"port" validate:"min=1,max=65535"`
	DataDir        string `mapstructure:"data-dir" validate:"required_unless=InMemory true"`
	InMemory       bool   `mapstructure:"in-memory"`
	MaxUploadBytes int64  `mapstructure:"max-upload-bytes" validate:"gt=0"`
	Debug          bool   `mapstructure:"debug"`
}

// RegisterServerFlags declares the server flags on flags.
func RegisterServerFlags(flags *pflag.FlagSet) {
	flags.String(KeyHost, DefaultHost, flagHostDescription)
	flags.Int(KeyPort, DefaultPort, flagPortDescription)
	flags.String(KeyDataDir, DefaultDataDir, flagDataDirDescription)
	flags.Bool(KeyInMemory, false, flagInMemoryDescription)
	flags.Int64(KeyMaxUploadBytes, DefaultMaxUploadBytes, flagMaxUploadBytesDescription)
	flags.Bool(KeyDebug, false, flagDebugDescription)
}

// NewViper returns a viper instance reading FOLLOWCHECK_* variables and the given flags.
func NewViper(flags *pflag.FlagSet) (*viper.Viper, error) {
	configuration := viper.New()
	configuration.SetEnvPrefix(EnvPrefix)
	configuration.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	configuration.AutomaticEnv()

	configuration.SetDefault(KeyHost, DefaultHost)
	configuration.SetDefault(KeyPort, DefaultPort)
	configuration.SetDefault(KeyDataDir, DefaultDataDir)
	configuration.SetDefault(KeyInMemory, false)
	configuration.SetDefault(KeyMaxUploadBytes, DefaultMaxUploadBytes)
	configuration.SetDefault(KeyDebug, false)

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(flag *pflag.Flag) {
			if bindErr != nil {
				return
			}
			if err := configuration.BindPFlag(flag.Name, flag); err != nil {
				bindErr = fmt.Errorf("%s %s: %w", errMessageBindFlag, flag.Name, err)
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}
	return configuration, nil
}

// Load decodes and validates the configuration held by source.
func Load(source *viper.Viper) (Config, error) {
	var loaded Config
	if err := source.Unmarshal(&loaded); err != nil {
		return Config{}, fmt.Errorf("%s: %w", errMessageUnmarshalConfig, err)
	}
	if err := validator.New().Struct(loaded); err != nil {
		return Config{}, fmt.Errorf("%s: %w", errMessageInvalidConfig, err)
	}
	return loaded, nil
}

// Address joins host and port for net.Listen.
func (loaded Config) Address() string {
	return fmt.Sprintf("%s:%d", loaded.Host, loaded.Port)
}
