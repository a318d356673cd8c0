package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrDSNRequired is returned when a database driver is configured without a DSN.
var ErrDSNRequired = errors.New("dsn is required (env GOMIGRATOR_DSN or config dsn)")

// Drivers lists the supported values of the driver key.
var Drivers = []string{"postgres", "sqlite", "mysql", "file"} //nolint:gochecknoglobals

// Config содержит конфигурацию приложения
type Config struct {
	DSN         string `mapstructure:"dsn"`
	Driver      string `mapstructure:"driver"` // postgres|sqlite|mysql|file
	Path        string `mapstructure:"path"`
	Kind        string `mapstructure:"kind"` // sql|go
	LockKey     int64  `mapstructure:"lock_key"`
	SchemaTable string `mapstructure:"schema_table"`
	LogFile     string `mapstructure:"log_file"`
	DownDefault string `mapstructure:"down_default"` // last|all
	LogLevel    string `mapstructure:"log_level"`
}

func Default() Config {
	return Config{
		Driver:      "postgres",
		Path:        "./migrations",
		Kind:        "sql",
		LockKey:     7243392,
		SchemaTable: "schema_migrations",
		DownDefault: "last",
		LogLevel:    "info",
	}
}

// Load загружает конфигурацию из файла + переменных окружения + флагов
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.SetEnvPrefix("GOMIGRATOR")
	v.AutomaticEnv()

	def := Default()
	_ = v.MergeConfigMap(map[string]any{
		"dsn":          def.DSN,
		"driver":       def.Driver,
		"path":         def.Path,
		"kind":         def.Kind,
		"lock_key":     def.LockKey,
		"schema_table": def.SchemaTable,
		"log_file":     def.LogFile,
		"down_default": def.DownDefault,
		"log_level":    def.LogLevel,
	})

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := readAndExpandFile(v, configFile); err != nil {
			return Config{}, err
		}
	} else {
		// искать конфиг по умолчанию
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := tryReadAndExpand(v); err != nil {
			return Config{}, err
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return Config{}, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, err
	}
	return c.normalize(def)
}

// bindFlags binds every flag to the key of the same name with dashes turned
// into underscores, so --schema-table and schema_table are the same setting.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

func (c Config) normalize(def Config) (Config, error) {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if !slices.Contains(Drivers, c.Driver) {
		return Config{}, fmt.Errorf("unsupported driver %q (one of %s)", c.Driver, strings.Join(Drivers, ", "))
	}
	if c.DSN == "" && c.Driver != "file" {
		return Config{}, ErrDSNRequired
	}
	if c.Path == "" {
		c.Path = def.Path
	}
	if !filepath.IsAbs(c.Path) {
		if p, err := filepath.Abs(c.Path); err == nil {
			c.Path = p
		}
	}
	if c.Driver == "file" && c.LogFile == "" {
		c.LogFile = filepath.Join(c.Path, "executed.yaml")
	}
	c.Kind = strings.ToLower(strings.TrimSpace(c.Kind))
	if c.Kind != "sql" && c.Kind != "go" {
		c.Kind = def.Kind
	}
	if c.SchemaTable == "" {
		c.SchemaTable = def.SchemaTable
	}
	if c.LockKey == 0 {
		c.LockKey = def.LockKey
	}
	c.DownDefault = strings.ToLower(strings.TrimSpace(c.DownDefault))
	switch c.DownDefault {
	case "":
		c.DownDefault = def.DownDefault
	case "last", "all":
	default:
		return Config{}, fmt.Errorf("down_default must be last or all, got %q", c.DownDefault)
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	return c, nil
}

func readAndExpandFile(v *viper.Viper, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	expanded := os.ExpandEnv(string(b))
	return v.MergeConfig(strings.NewReader(expanded))
}

func tryReadAndExpand(v *viper.Viper) error {
	// необязательно
	if err := v.ReadInConfig(); err != nil {
		var viperConfigFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &viperConfigFileNotFound) {
			return nil
		}
		// путь неизвестен, файл просто пропускаем
		return nil
	}
	// повторно прочитать с подстановкой окружения
	path := v.ConfigFileUsed()
	if path == "" {
		return nil
	}
	return readAndExpandFile(v, path)
}
