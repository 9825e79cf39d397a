package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	Config struct {
		Env                       string            `mapstructure:"env"`
		Build                     string            `mapstructure:"build"`
		Debug                     bool              `mapstructure:"debug"`
		TestMode                  bool              `mapstructure:"testMode"`
		AppName                   string            `mapstructure:"appName"`
		SecretKey                 string            `mapstructure:"secretKey"`
		FrontendBaseURL           string            `mapstructure:"frontendBaseURL"`
		DefaultFromEmail          string            `mapstructure:"defaultFromEmail"`
		PasswordResetTimeoutDelta time.Duration     `mapstructure:"passwordResetTimeoutDelta"`
		RollbarToken              string            `mapstructure:"rollbarToken"`
		SendgridApiKey            string            `mapstructure:"sendgridApiKey"`
		Timezone                  string            `mapstructure:"timezone"`
		Admins                    []string          `mapstructure:"admins"`
		DisplayNames              map[string]string `mapstructure:"displayNames"`

		Server   ServerConfig   `mapstructure:"server"`
		Database DatabaseConfig `mapstructure:"database"`
		Google   GoogleConfig   `mapstructure:"google"`
	}

	ServerConfig struct {
		Host                      string        `mapstructure:"host"`
		Port                      string        `mapstructure:"port"`
		DebugHost                 string        `mapstructure:"debugHost"`
		ShutdownTimeout           time.Duration `mapstructure:"shutdownTimeout"`
		JWTExpirationDelta        time.Duration `mapstructure:"jwtExpirationDelta"`
		JWTRefreshExpirationDelta time.Duration `mapstructure:"jwtRefreshExpirationDelta"`
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"` // postgres | sqlite
		Host          string `mapstructure:"host"`
		Port          string `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminUser"`
		AdminPassword string `mapstructure:"adminPassword"`
		DisableTLS    bool   `mapstructure:"disableTLS"`
		Path          string `mapstructure:"path"` // sqlite file or ":memory:"
	}

	GoogleConfig struct {
		ClientID     string `mapstructure:"clientId"`
		ClientSecret string `mapstructure:"clientSecret"`
		RefreshToken string `mapstructure:"refreshToken"`
	}
)

func (c ServerConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

func (c DatabaseConfig) Address() string { return net.JoinHostPort(c.Host, c.Port) }

func (c *Config) DefaultFromAddress() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.DefaultFromEmail}
}

// Location returns the configured timezone, UTC when unset or unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsAdminEmail reports whether email is listed in the configured admins.
func (c *Config) IsAdminEmail(email string) bool {
	email = CleanString(email, true /* lower */)
	for _, a := range c.Admins {
		if CleanString(a, true /* lower */) == email {
			return true
		}
	}
	return false
}

func init() {
	conf, err := LoadConfig()
	if err != nil {
		log.Fatalf("config.LoadConfig(): %v", err)
	}
	Conf = conf
}

// LoadConfig reads defaults, config/.env.<env>, an optional config file and the environment.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Help")
	v.SetDefault("secretKey", "ke7-z!p0s1+rq^w2c%9m8n@6xv&yt#4hd(b3f)l5g_aj")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("timezone", "America/Los_Angeles")
	v.SetDefault("admins", []string{})
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.debugHost", "")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("database.engine", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "help")
	v.SetDefault("database.path", "help.db")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.path", ":memory:")
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetDefault("env", env)
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	v.SetConfigName("config")
	v.AddConfigPath("config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	return conf, nil
}
