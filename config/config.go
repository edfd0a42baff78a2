package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "AUDIT_CONFIG_FILE"
	envPrefix         = "AUDIT"
	masked            = "********"
)

// secretEnv lists the variables checked for each secret, first match wins.
var secretEnv = map[string][]string{
	"catalog.access_token": {"AUDIT_CATALOG_ACCESS_TOKEN", "SHOPIFY_ACCESS_TOKEN"},
	"mail.password":        {"AUDIT_MAIL_PASSWORD", "EMAIL_PASSWORD"},
	"cache.redis_password": {"AUDIT_CACHE_REDIS_PASSWORD"},
}

type catalog struct {
	Shop              string        `mapstructure:"shop" validate:"required_without=Host"`
	Host              string        `mapstructure:"host" validate:"omitempty,url"`
	APIVersion        string        `mapstructure:"api_version"`
	AccessToken       string        `mapstructure:"access_token" validate:"required"`
	AdminURL          string        `mapstructure:"admin_url" validate:"omitempty,url"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=0"`
	GraphQLBatch      int           `mapstructure:"graphql_batch" validate:"gte=0,lte=250"`
}

type mail struct {
	Host          string   `mapstructure:"host" validate:"required"`
	Port          int      `mapstructure:"port" validate:"gte=0,lte=65535"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password" validate:"required"`
	From          string   `mapstructure:"from" validate:"required,email"`
	To            []string `mapstructure:"to" validate:"required,min=1,dive,email"`
	SkipWhenClean bool     `mapstructure:"skip_when_clean"`
}

type schedule struct {
	Cron       string `mapstructure:"cron" validate:"required"`
	Timezone   string `mapstructure:"timezone"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

type policy struct {
	RequiredChannels []string `mapstructure:"required_channels"`
	LinkMetafield    string   `mapstructure:"link_metafield"`
	FlagUnbranded    bool     `mapstructure:"flag_unbranded"`
	DetailLimit      int      `mapstructure:"detail_limit" validate:"gte=0"`
}

type Brand struct {
	Name        string   `mapstructure:"name" validate:"required"`
	Collections []string `mapstructure:"collections" validate:"required,min=1,dive,required"`
}

type cache struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory redis"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisKey      string `mapstructure:"redis_key"`
}

type topics struct {
	Issues       string `mapstructure:"issues"`
	RunSummaries string `mapstructure:"run_summaries"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

type broker struct {
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	Topics             topics   `mapstructure:"topics"`
	TLS                tlsFiles `mapstructure:"tls"`
}

type Config struct {
	LogLevel           slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr     string        `mapstructure:"http_server_addr" validate:"required"`
	HTTPHandlerTimeout time.Duration `mapstructure:"http_handler_timeout"`
	SQLDB              string        `mapstructure:"sql_db"`
	Catalog            catalog       `mapstructure:"catalog"`
	Mail               mail          `mapstructure:"mail"`
	Schedule           schedule      `mapstructure:"schedule"`
	Policy             policy        `mapstructure:"policy"`
	Brands             []Brand       `mapstructure:"brands" validate:"dive"`
	Cache              cache         `mapstructure:"cache"`
	Broker             broker        `mapstructure:"broker"`

	// File is the path the config was read from.
	File string `mapstructure:"-"`
}

// PublishEnabled reports whether issue events go to the broker.
func (c Config) PublishEnabled() bool {
	return len(c.Broker.SeedBrokers) != 0
}

func (c Config) ArchiveEnabled() bool {
	return c.SQLDB != ""
}

func (b tlsFiles) Enabled() bool {
	return b.CA != "" && b.Cert != "" && b.Key != ""
}

// Load reads the config file and the environment. Any problem is fatal.
func Load() Config {
	_ = godotenv.Load()

	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads and validates the config at path.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := bindEnv(v); err != nil {
		return Config{}, err
	}

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return Config{}, err
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	cfg.File = path
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("http_handler_timeout", "2m")
	v.SetDefault("catalog.api_version", "2024-01")
	v.SetDefault("catalog.requests_per_second", 2)
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.max_attempts", 4)
	v.SetDefault("catalog.graphql_batch", 15)
	v.SetDefault("mail.port", 465)
	v.SetDefault("schedule.cron", "0 9 * * *")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("policy.link_metafield", "custom.link")
	v.SetDefault("policy.detail_limit", 50)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("broker.topics.issues", "catalog-audit-issues")
	v.SetDefault("broker.topics.run_summaries", "catalog-audit-runs")
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range secretEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return err
		}
	}
	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func validate(cfg Config) error {
	err := validator.New().Struct(cfg)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	HTTPHandlerTimeout=%q
	SQLDB=%q

	Catalog:
	Shop=%q
	Host=%q
	APIVersion=%q
	AccessToken=%q
	AdminURL=%q
	GraphQLBatch=%d

	Mail:
	Host=%q
	Port=%d
	From=%q
	To=%q
	Password=%q
	SkipWhenClean=%t

	Schedule:
	Cron=%q
	Timezone=%q
	RunOnStart=%t

	Policy:
	RequiredChannels=%q
	LinkMetafield=%q
	FlagUnbranded=%t
	Brands=%d

	Cache:
	Backend=%q
	RedisAddr=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	Topics:
		Issues=%q
		RunSummaries=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.HTTPHandlerTimeout,
		mask(c.SQLDB),
		c.Catalog.Shop,
		c.Catalog.Host,
		c.Catalog.APIVersion,
		mask(c.Catalog.AccessToken),
		c.Catalog.AdminURL,
		c.Catalog.GraphQLBatch,
		c.Mail.Host,
		c.Mail.Port,
		c.Mail.From,
		c.Mail.To,
		mask(c.Mail.Password),
		c.Mail.SkipWhenClean,
		c.Schedule.Cron,
		c.Schedule.Timezone,
		c.Schedule.RunOnStart,
		c.Policy.RequiredChannels,
		c.Policy.LinkMetafield,
		c.Policy.FlagUnbranded,
		len(c.Brands),
		c.Cache.Backend,
		c.Cache.RedisAddr,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.Topics.Issues,
		c.Broker.Topics.RunSummaries,
	)
}
