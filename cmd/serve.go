package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/DeadManOfficial/deadman-dash/internal/server"
	"github.com/DeadManOfficial/deadman-dash/internal/utils"
	"github.com/DeadManOfficial/deadman-dash/pkg/dispatch"
	"github.com/DeadManOfficial/deadman-dash/pkg/hackerone"
	"github.com/DeadManOfficial/deadman-dash/pkg/health"
	"github.com/DeadManOfficial/deadman-dash/pkg/notion"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")

		creds := health.Credentials{
			GitHubToken:  utils.Credential(viper.GetString("github.token")),
			NotionAPIKey: utils.Credential(viper.GetString("notion.api_key")),
			VercelToken:  utils.Credential(viper.GetString("vercel.token")),
			GroqAPIKey:   utils.Credential(viper.GetString("groq.api_key")),
			ShodanAPIKey: utils.Credential(viper.GetString("shodan.api_key")),
			H1Username:   utils.Credential(viper.GetString("hackerone.username")),
			H1Token:      utils.Credential(viper.GetString("hackerone.token")),
		}

		notionClient := notion.NewClient(creds.NotionAPIKey, notion.Databases{
			Programs: utils.Credential(viper.GetString("notion.db_programs")),
			Findings: utils.Credential(viper.GetString("notion.db_findings")),
			Targets:  utils.Credential(viper.GetString("notion.db_targets")),
			Projects: utils.Credential(viper.GetString("notion.db_projects")),
		})

		srv := server.New(
			notionClient,
			hackerone.NewClient(creds.H1Username, creds.H1Token),
			dispatch.NewClient(creds.GitHubToken),
			health.NewProber(health.ChecksFor(creds)),
		)

		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
}
