package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/parafrasa/internal/logging"
	"github.com/ppiankov/parafrasa/internal/model"
)

// Version is overridden at build time with -ldflags
var Version = "v0.1.0"

var (
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "parafrasa",
	Short: "Parafrasa - hybrid paraphrasing for academic Indonesian text",
	Long: `Parafrasa rewrites academic paragraphs to reduce similarity against
known boilerplate while keeping calls to an AI refiner to a minimum.

Every paragraph is rewritten locally first. Only paragraphs whose local
rewrite is weak, complex or still close to known templates are escalated,
according to the selected mode (smart, balanced, aggressive, turnitin_safe).`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := viper.GetString("output.log_level")
		if verbose {
			level = "debug"
		}
		_, err := logging.Setup(level, viper.GetString("output.log_format"))
		return err
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("parafrasa %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.parafrasa/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("output.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("output.log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := registerDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".parafrasa"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// PARAFRASA_LLM_PROVIDER overrides llm.provider, and so on
	viper.SetEnvPrefix("PARAFRASA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to v so environment
// variables are honored by Unmarshal
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults(v, "", tree)

	// Keys omitted from YAML when empty
	for _, key := range []string{
		"llm.api_key", "llm.base_url", "llm.http_proxy", "llm.https_proxy",
		"patterns.path", "store.path", "transform.synonyms_path",
	} {
		v.SetDefault(key, "")
	}
	return nil
}

func setDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && len(sub) > 0 && !isModeMap(key) {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// Mode and category maps are replaced wholesale by a config file, not merged per key
func isModeMap(key string) bool {
	return key == "modes" || key == "risk.category_weights"
}

// loadConfig builds the effective configuration from defaults, file, env and flags
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(&cfg.LLM)
	return cfg, nil
}

// applyProviderEnv fills credentials from the providers' conventional variables
func applyProviderEnv(c *model.LLMConfig) {
	if c.APIKey == "" {
		switch strings.ToLower(c.Provider) {
		case "openai":
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini", "google":
			c.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if c.BaseURL == "" && strings.EqualFold(c.Provider, "ollama") {
		c.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
}
