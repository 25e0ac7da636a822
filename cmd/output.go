package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"

	"github.com/cicdai/cli/internal/config"
	"github.com/cicdai/cli/internal/kvs"
	"github.com/cicdai/cli/internal/projects"
	"github.com/cicdai/cli/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	labelStyle   = lipgloss.NewStyle().Width(15).Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

var nowFunc = time.Now

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(label+":"), value)
}

func storeDescription(cfg *config.Config) string {
	switch t, _ := kvs.ValidateType(cfg.Store.Type); t {
	case kvs.TypeFile:
		if fs, ok := application.Store.(*kvs.FileStore); ok {
			return "file " + fs.Path()
		}
		return "file"
	case kvs.TypeKeyring:
		service := cfg.Store.Keyring.Service
		if service == "" {
			service = kvs.DefaultKeyringService
		}
		return "keyring (" + service + ")"
	case kvs.TypeRedis:
		return "redis " + cfg.Store.Redis.Addr
	case kvs.TypeLevelDB:
		if cfg.Store.LevelDB.Path != "" {
			return "leveldb " + cfg.Store.LevelDB.Path
		}
		return "leveldb"
	default:
		return string(t)
	}
}

func printSession(w io.Writer, snap session.Snapshot) {
	if snap.State != session.LoggedIn {
		printField(w, "Session", errorStyle.Render(snap.State.String()))
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The stored token was not accepted. Run 'cicdai auth login' to sign in again.")
		return
	}

	printField(w, "Session", successStyle.Render(snap.State.String()))
	if snap.User != nil {
		printField(w, "User", snap.User.Email)
	}
	printField(w, "GitHub", linkStatus(snap.GithubConnected, snap.User, func(u *session.UserProfile) string { return u.GithubUsername }))
	printField(w, "Google", linkStatus(snap.GoogleConnected, snap.User, func(u *session.UserProfile) string { return u.GoogleEmail }))
}

func linkStatus(connected bool, user *session.UserProfile, id func(*session.UserProfile) string) string {
	if !connected {
		return mutedStyle.Render("not linked")
	}
	if user != nil && id(user) != "" {
		return successStyle.Render("linked") + " (" + id(user) + ")"
	}
	return successStyle.Render("linked")
}

func printProjectsTable(w io.Writer, list []projects.Project) {
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		url := p.DeploymentURL
		if url == "" {
			url = "-"
		}
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.GithubRepo, p.ServiceName, p.Region, url})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("ID", "REPOSITORY", "SERVICE", "REGION", "URL").
		Rows(rows...)

	fmt.Fprintln(w, t)
}

// printOutput writes data as JSON. "pretty" is indented and, on a terminal,
// syntax highlighted.
func printOutput(w io.Writer, data interface{}, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case "pretty":
		jsonBytes, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		if f, ok := w.(*os.File); ok && isTerminal(f) {
			if err := quick.Highlight(w, string(jsonBytes)+"\n", "json", "terminal256", "monokai"); err == nil {
				return nil
			}
		}
		fmt.Fprintln(w, string(jsonBytes))
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
