package app

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds CLI configuration loaded from flags, environment
// variables, .env files, and an optional config file, in that
// precedence order.
type Config struct {
	// ResourceFile is the YAML resource definition path.
	ResourceFile string

	// DBPath is the SQLite database path; "memory" selects the
	// in-memory store.
	DBPath string

	// TempDir holds previewed uploads between import phases. Empty
	// selects the system temp directory.
	TempDir string

	// Verbose and Quiet adjust log verbosity.
	Verbose bool
	Quiet   bool

	// ConfigFile records which config file was loaded, if any.
	ConfigFile string
}

// LoadConfig loads configuration from all sources in precedence order:
// command-line flags (bound by cobra), environment variables, .env
// files, config file, defaults.
func LoadConfig() (*Config, error) {
	// .env before viper env binding so both see the same values.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("SHEETPORT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	viper.SetDefault("db", "sheetport.db")

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sheetport")
	}
	_ = viper.ReadInConfig()

	return &Config{
		ResourceFile: viper.GetString("resource"),
		DBPath:       viper.GetString("db"),
		TempDir:      viper.GetString("temp_dir"),
		Verbose:      viper.GetBool("verbose"),
		Quiet:        viper.GetBool("quiet"),
		ConfigFile:   viper.ConfigFileUsed(),
	}, nil
}
