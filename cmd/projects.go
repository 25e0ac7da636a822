package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cicdai/cli/internal/gitremote"
	"github.com/cicdai/cli/internal/projects"
)

var (
	projectsOutput      string
	projectsCurrentRepo bool
)

// projectsCmd represents the projects command
var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage your deployment projects",
	Long: `List and delete the deployment projects created for your repositories.

Examples:
  # List all projects
  cicdai projects list

  # Only the project deploying the repository in the current directory
  cicdai projects list --current-repo

  # Machine-readable output
  cicdai projects list -o json

  # Delete a project
  cicdai projects delete 42`,
}

var projectsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := application.Projects.ListMine(cmd.Context())
		if err != nil {
			return describeError(err)
		}

		if projectsCurrentRepo {
			repo, err := gitremote.Detect(".")
			if err != nil {
				return fmt.Errorf("failed to detect repository: %w", err)
			}
			application.Logger.Debug().Str("repo", repo).Msg("filtering projects by repository")
			list = projects.FilterByRepo(list, repo)
		}

		out := cmd.OutOrStdout()
		if projectsOutput != "table" {
			if list == nil {
				list = []projects.Project{}
			}
			return printOutput(out, list, projectsOutput)
		}

		if len(list) == 0 {
			fmt.Fprintln(out, "No projects found.")
			return nil
		}
		printProjectsTable(out, list)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := application.Projects.Delete(cmd.Context(), args[0])
		if err != nil {
			return describeError(err)
		}

		msg := resp.Message
		if msg == "" {
			msg = "Project deleted"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("✓"), msg)
		return nil
	},
}

func init() {
	projectsListCmd.Flags().StringVarP(&projectsOutput, "output", "o", "table", "Output format (table, json, pretty)")
	projectsListCmd.Flags().BoolVar(&projectsCurrentRepo, "current-repo", false, "Only show projects for the git repository in the current directory")

	projectsCmd.AddCommand(projectsListCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}
