package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "leadscout"
	envPrefix = "LEADSCOUT"
)

type Config struct {
	Scoring    *ProviderConfig   `mapstructure:"scoring"`
	Discovery  *ProviderConfig   `mapstructure:"discovery"`
	Evaluation *EvaluationConfig `mapstructure:"evaluation"`
	Search     *SearchConfig     `mapstructure:"search"`
	Store      *StoreConfig      `mapstructure:"store"`
	Server     *ServerConfig     `mapstructure:"server"`
	Prompts    string            `mapstructure:"prompts"`
	UserAgent  string            `mapstructure:"user-agent"`
}

type ProviderConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api-key" json:"-"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	BaseURL      string        `mapstructure:"base-url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CostPer1K    float64       `mapstructure:"cost-per-1k"`
	MaxLogLength int           `mapstructure:"max-log-length"`
}

type EvaluationConfig struct {
	BatchSize int           `mapstructure:"batch-size"`
	Delay     time.Duration `mapstructure:"delay"`
	TopN      int           `mapstructure:"top-n"`
	OutputDir string        `mapstructure:"output-dir"`
}

type SearchConfig struct {
	APIKey       string        `mapstructure:"api-key" json:"-"`
	APIKeyFile   string        `mapstructure:"api-key-file"`
	RateLimitRPS float64       `mapstructure:"rate-limit-rps"`
	MaxPages     int           `mapstructure:"max-pages"`
	PageDelay    time.Duration `mapstructure:"page-delay"`
	BiasDelta    float64       `mapstructure:"bias-delta"`
}

type StoreConfig struct {
	Driver    string       `mapstructure:"driver"`
	Dir       string       `mapstructure:"dir"`
	Mongo     *MongoConfig `mapstructure:"mongo"`
	Telemetry bool         `mapstructure:"telemetry"`
}

type MongoConfig struct {
	URI             string `mapstructure:"uri" json:"-"`
	URIFile         string `mapstructure:"uri-file"`
	ReadDatabase    string `mapstructure:"read-database"`
	ReadCollection  string `mapstructure:"read-collection"`
	WriteDatabase   string `mapstructure:"write-database"`
	WriteCollection string `mapstructure:"write-collection"`
	LogDatabase     string `mapstructure:"log-database"`
	LogCollection   string `mapstructure:"log-collection"`
}

type ServerConfig struct {
	Listen     string        `mapstructure:"listen"`
	SessionTTL time.Duration `mapstructure:"session-ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "leadscout discovers businesses that may buy a seller's product and ranks them",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is leadscout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("scoring.provider", "perplexity")
	viper.SetDefault("scoring.model", "")
	viper.SetDefault("scoring.api-key", "")
	viper.SetDefault("scoring.api-key-file", "")
	viper.SetDefault("scoring.timeout", "60s")
	viper.SetDefault("scoring.cost-per-1k", 0.01)
	viper.SetDefault("scoring.max-log-length", 500)

	viper.SetDefault("discovery.provider", "")
	viper.SetDefault("discovery.model", "")
	viper.SetDefault("discovery.api-key", "")
	viper.SetDefault("discovery.api-key-file", "")

	viper.SetDefault("evaluation.batch-size", 5)
	viper.SetDefault("evaluation.delay", "1s")
	viper.SetDefault("evaluation.top-n", 10)
	viper.SetDefault("evaluation.output-dir", "final_structured_output")

	viper.SetDefault("search.api-key", "")
	viper.SetDefault("search.api-key-file", "")
	viper.SetDefault("search.rate-limit-rps", 5)
	viper.SetDefault("search.max-pages", 3)
	viper.SetDefault("search.page-delay", "2s")
	viper.SetDefault("search.bias-delta", 0.5)

	viper.SetDefault("store.driver", "file")
	viper.SetDefault("store.dir", "sessions")
	viper.SetDefault("store.telemetry", true)
	viper.SetDefault("store.mongo.uri", "")
	viper.SetDefault("store.mongo.uri-file", "")
	viper.SetDefault("store.mongo.read-database", "intake")
	viper.SetDefault("store.mongo.read-collection", "sessions")
	viper.SetDefault("store.mongo.write-database", "leadscout")
	viper.SetDefault("store.mongo.write-collection", "discovery")
	viper.SetDefault("store.mongo.log-database", "leadscout")
	viper.SetDefault("store.mongo.log-collection", "rankings")

	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.session-ttl", "1h")
	viper.SetDefault("prompts", "")
	viper.SetDefault("user-agent", "")
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	setDefaults()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults and environment are enough unless a file was asked for explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
