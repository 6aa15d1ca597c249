// Package config provides configuration loading for the git-observer application.
// Values come from positional arguments, environment variables, a dotenv file
// and built-in defaults, in that order of precedence. The webhook secret may
// instead be read from HashiCorp Vault.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Configuration keys. The environment variable of each key is its upper-case form.
const (
	KeyRepo                    = "repo"
	KeyWebhookSecret           = "webhook_secret"
	KeyPort                    = "port"
	KeyRebuildCommand          = "rebuild_command"
	KeyPullingUser             = "pulling_user"
	KeyBranchPattern           = "branch_pattern"
	KeyPullOnly                = "pull_only"
	KeyGatewayService          = "gateway_service"
	KeyComposeFile             = "compose_file"
	KeyComposeCommand          = "compose_command"
	KeyMatchMode               = "match_mode"
	KeyCatalogTimeout          = "catalog_timeout"
	KeyMaxBodyBytes            = "max_body_bytes"
	KeyShutdownTimeout         = "shutdown_timeout"
	KeyVaultWebhookSecretPath  = "vault_webhook_secret_path"
	KeyVaultWebhookSecretMount = "vault_webhook_secret_mount"
	KeyLogLevel                = "log_level"
	KeyLogAppName              = "log_app_name"
)

// Default values.
const (
	DefaultRepo             = "../path-to-project-folder"
	DefaultWebhookSecret    = "git-observer-secret"
	DefaultPort             = 8000
	DefaultRebuildCommand   = "bash rebuild.sh"
	DefaultPullingUser      = "ubuntu"
	DefaultGatewayService   = "nginx"
	DefaultComposeFile      = "docker-compose.yml"
	DefaultComposeCommand   = "docker-compose"
	DefaultMatchMode        = "substring"
	DefaultCatalogTimeout   = 5 * time.Second
	DefaultMaxBodyBytes     = 1 << 20
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultVaultSecretMount = "secret"
	DefaultLogLevel         = "info"
	DefaultLogAppName       = "git-observer"
	DefaultEnvFile          = ".env"
)

// VaultWebhookSecretKey is the key holding the secret inside the Vault KV entry.
const VaultWebhookSecretKey = "webhook_secret"

const (
	maxPositionalArgs = 6
	debugLogLevel     = "debug"
)

// positionalKeys maps positional arguments to keys, in order.
var positionalKeys = [maxPositionalArgs]string{
	KeyRepo,
	KeyWebhookSecret,
	KeyPort,
	KeyRebuildCommand,
	KeyPullingUser,
	KeyBranchPattern,
}

// Configuration errors.
var (
	// ErrInvalidConfig indicates a value failed validation or could not be decoded.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTooManyArguments indicates more positional arguments than known keys.
	ErrTooManyArguments = errors.New("too many positional arguments")

	// ErrEnvFileInvalid indicates the dotenv file exists but could not be parsed.
	ErrEnvFileInvalid = errors.New("env file could not be read")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("webhook secret not found in Vault")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration. It is read once at startup and
// never modified afterwards.
type Config struct {
	// Repo is the path of the deployment checkout.
	Repo string `mapstructure:"repo" validate:"required"`

	// WebhookSecret is the shared secret used to verify deliveries.
	WebhookSecret string `mapstructure:"webhook_secret" validate:"required"`

	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// RebuildCommand is run through the shell for full rebuilds.
	RebuildCommand string `mapstructure:"rebuild_command" validate:"required"`

	// PullingUser runs git pull through sudo. Empty pulls in-process.
	PullingUser string `mapstructure:"pulling_user"`

	// BranchPattern filters pushes by branch. Empty accepts every branch.
	BranchPattern string `mapstructure:"branch_pattern"`

	// PullOnly stops after the pull.
	PullOnly bool `mapstructure:"pull_only"`

	// GatewayService is restarted after selective rebuilds. Empty disables the restart.
	GatewayService string `mapstructure:"gateway_service"`

	ComposeFile    string `mapstructure:"compose_file" validate:"required"`
	ComposeCommand string `mapstructure:"compose_command" validate:"required"`

	// MatchMode is "substring" or "context".
	MatchMode string `mapstructure:"match_mode" validate:"oneof=substring context"`

	CatalogTimeout  time.Duration `mapstructure:"catalog_timeout" validate:"gt=0"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`

	// VaultWebhookSecretPath enables reading the secret from Vault KV v2.
	VaultWebhookSecretPath  string `mapstructure:"vault_webhook_secret_path"`
	VaultWebhookSecretMount string `mapstructure:"vault_webhook_secret_mount"`

	LogLevel   string `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogAppName string `mapstructure:"log_app_name"`
}

// Address returns the listen address.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Options selects the sources Load reads besides the environment.
type Options struct {
	// Args are the positional arguments: repo, secret, port, rebuild command,
	// pulling user and branch pattern. Missing trailing arguments fall through.
	Args []string

	// EnvFile is the dotenv file. Empty uses DefaultEnvFile. A missing file is skipped.
	EnvFile string

	// Verbose forces the debug log level.
	Verbose bool
}

// Load loads the application configuration.
func Load(ctx context.Context, opts Options) (*Config, error) {
	return LoadWithVaultClient(ctx, opts, nil)
}

// LoadWithVaultClient loads configuration using the provided VaultClient factory.
// If vaultClientFactory is nil, DefaultVaultClientFactory is used.
func LoadWithVaultClient(ctx context.Context, opts Options, vaultClientFactory VaultClientFactory) (*Config, error) {
	if len(opts.Args) > maxPositionalArgs {
		return nil, fmt.Errorf("%w: got %d, at most %d", ErrTooManyArguments, len(opts.Args), maxPositionalArgs)
	}

	v := viper.New()
	setDefaults(v)

	if err := readEnvFile(v, opts.EnvFile); err != nil {
		return nil, err
	}

	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	for i, arg := range opts.Args {
		v.Set(positionalKeys[i], arg)
	}
	if opts.Verbose {
		v.Set(KeyLogLevel, debugLogLevel)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.MatchMode = strings.ToLower(cfg.MatchMode)

	if cfg.VaultWebhookSecretPath != "" {
		secret, err := loadSecretFromVault(ctx, vaultClientFactory, cfg.VaultWebhookSecretPath, cfg.VaultWebhookSecretMount)
		if err != nil {
			return nil, err
		}
		cfg.WebhookSecret = secret
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyRepo, DefaultRepo)
	v.SetDefault(KeyWebhookSecret, DefaultWebhookSecret)
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyRebuildCommand, DefaultRebuildCommand)
	v.SetDefault(KeyPullingUser, DefaultPullingUser)
	v.SetDefault(KeyBranchPattern, "")
	v.SetDefault(KeyPullOnly, false)
	v.SetDefault(KeyGatewayService, DefaultGatewayService)
	v.SetDefault(KeyComposeFile, DefaultComposeFile)
	v.SetDefault(KeyComposeCommand, DefaultComposeCommand)
	v.SetDefault(KeyMatchMode, DefaultMatchMode)
	v.SetDefault(KeyCatalogTimeout, DefaultCatalogTimeout)
	v.SetDefault(KeyMaxBodyBytes, DefaultMaxBodyBytes)
	v.SetDefault(KeyShutdownTimeout, DefaultShutdownTimeout)
	v.SetDefault(KeyVaultWebhookSecretPath, "")
	v.SetDefault(KeyVaultWebhookSecretMount, DefaultVaultSecretMount)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogAppName, DefaultLogAppName)
}

// readEnvFile merges a dotenv file into v. A missing file is not an error.
func readEnvFile(v *viper.Viper, path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %s: %w", ErrEnvFileInvalid, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrEnvFileInvalid, path)
	}

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrEnvFileInvalid, path, err)
	}
	return nil
}

// loadSecretFromVault reads the webhook secret from Vault KV v2.
func loadSecretFromVault(
	ctx context.Context,
	vaultClientFactory VaultClientFactory,
	path, mount string,
) (string, error) {
	if vaultClientFactory == nil {
		vaultClientFactory = DefaultVaultClientFactory
	}

	client, err := vaultClientFactory(ctx)
	if err != nil {
		return "", err
	}

	if mount == "" {
		mount = DefaultVaultSecretMount
	}

	secretData, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	secret, ok := secretData[VaultWebhookSecretKey].(string)
	if !ok || secret == "" {
		return "", fmt.Errorf("%w: key %q missing at path %s", ErrVaultSecretNotFound, VaultWebhookSecretKey, path)
	}
	return secret, nil
}
