package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/pathfinder/internal/ai/gemini"
	"github.com/spigell/pathfinder/internal/scoring"
	"github.com/spigell/pathfinder/internal/server"
)

const (
	app = "pathfinder"

	defaultCareersFile  = "careers.json"
	defaultMaxLogLength = 200
)

type Config struct {
	Server  server.Config  `mapstructure:"server"`
	Careers CareersConfig  `mapstructure:"careers"`
	Gemini  GeminiConfig   `mapstructure:"gemini"`
	Scoring scoring.Config `mapstructure:"scoring"`
}

type CareersConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "pathfinder serves career predictions and AI career advice",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"gemini.api-key":      "GEMINI_API_KEY",
		"gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"careers.file":        "CAREERS_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is pathfinder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("careers-file", "c", "", "career profiles file (default is careers.json)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("careers.file", rootCmd.PersistentFlags().Lookup("careers-file"))
}

func initConfig() {
	// .env is optional, real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	setDefaults(viper.GetViper(), os.Getenv("PORT"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		// An explicit config must exist and parse.
		if err := viper.ReadInConfig(); err != nil {
			log.Fatal(err)
		}
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigName(app)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func setDefaults(v *viper.Viper, port string) {
	address := ":5000"
	if port = strings.TrimSpace(port); port != "" {
		address = ":" + port
	}

	v.SetDefault("server.address", address)
	v.SetDefault("server.cors-origins", []string{"*"})
	v.SetDefault("careers.file", defaultCareersFile)
	v.SetDefault("careers.watch", true)
	v.SetDefault("gemini.model", gemini.DefaultModel)
	v.SetDefault("gemini.max-log-length", defaultMaxLogLength)

	defaults := scoring.DefaultConfig()
	v.SetDefault("scoring.base-weight", defaults.BaseWeight)
	v.SetDefault("scoring.specific-weight", defaults.SpecificWeight)
	v.SetDefault("scoring.min-probability", defaults.MinProbability)
	v.SetDefault("scoring.clamp-min", defaults.ClampMin)
	v.SetDefault("scoring.clamp-max", defaults.ClampMax)
	v.SetDefault("scoring.engineer-marker", defaults.EngineerMarker)
	v.SetDefault("scoring.heuristic-tag", defaults.HeuristicTag)
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		return nil, errors.New("config is empty")
	}

	if err := config.Scoring.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
