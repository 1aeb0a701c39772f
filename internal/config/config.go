// Package config loads application settings through Viper and builds the
// process logger from them.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envConfigDir = "STAGTHEME_CONFIG_DIR"

type Settings struct {
	DefaultTheme string            `mapstructure:"default_theme"`
	ThemeRoots   map[string]string `mapstructure:"theme_roots"`
	Logging      LoggingSettings   `mapstructure:"logging"`
}

type LoggingSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Dir returns the configuration directory, honouring the override env
// var so tests and portable installs can relocate it.
func Dir() string {
	if dir := os.Getenv(envConfigDir); dir != "" {
		return dir
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(base, "stagtheme")
}

// Load reads stagtheme.{toml,yaml,json} from the config directory.
// A missing file yields defaults; a malformed one fails. Environment
// variables prefixed STAGTHEME_ override file values.
func Load() (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault("default_theme", "")
	v.SetDefault("theme_roots", map[string]string{})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetConfigName("stagtheme")
	v.AddConfigPath(Dir())
	v.SetEnvPrefix("STAGTHEME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

func Decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
