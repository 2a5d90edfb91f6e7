package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeadManOfficial/deadman-dash/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `	     _                _
	  __| | ___  __ _  __| |_ __ ___   __ _ _ __
	 / _' |/ _ \/ _' |/ _' | '_ ' _ \ / _' | '_ \
	| (_| |  __/ (_| | (_| | | | | | | (_| | | | |
	 \__,_|\___|\__,_|\__,_|_| |_| |_|\__,_|_| |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "deadman-dash",
	Short: "Backend for the DeadMan bug bounty operations dashboard.",
	Long: LOGO + `deadman-dash aggregates your Notion hunting databases, HackerOne program
scope, and GitHub Actions hunt runs into one JSON API, with health checks
for every integration.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.deadmandash.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".deadmandash")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// Credentials usually arrive through the environment; the config
	// file is the fallback for local development.
	viper.BindEnv("notion.api_key", "NOTION_API_KEY")
	viper.BindEnv("notion.db_programs", "NOTION_DB_PROGRAMS")
	viper.BindEnv("notion.db_findings", "NOTION_DB_FINDINGS")
	viper.BindEnv("notion.db_targets", "NOTION_DB_TARGETS")
	viper.BindEnv("notion.db_projects", "NOTION_DB_PROJECTS")
	viper.BindEnv("github.token", "GITHUB_PAT")
	viper.BindEnv("hackerone.username", "H1_USERNAME")
	viper.BindEnv("hackerone.token", "H1_TOKEN")
	viper.BindEnv("vercel.token", "VERCEL_TOKEN")
	viper.BindEnv("groq.api_key", "GROQ_API_KEY")
	viper.BindEnv("shodan.api_key", "SHODAN_API_KEY")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.deadmandash.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("notion.api_key", "")
	viper.SetDefault("notion.db_programs", "")
	viper.SetDefault("notion.db_findings", "")
	viper.SetDefault("notion.db_targets", "")
	viper.SetDefault("notion.db_projects", "")
	viper.SetDefault("github.token", "")
	viper.SetDefault("hackerone.username", "")
	viper.SetDefault("hackerone.token", "")
	viper.SetDefault("vercel.token", "")
	viper.SetDefault("groq.api_key", "")
	viper.SetDefault("shodan.api_key", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
