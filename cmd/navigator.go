package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cicdai/cli/internal/session"
)

// navigator is where a forced logout lands in a terminal. There is no login
// page to open, so the user gets the command that signs them back in and the
// web sign-in address built from the configured login path.
type navigator struct {
	w       io.Writer
	baseURL string
	message string
}

func newNavigator(w io.Writer, baseURL, locale string) *navigator {
	return &navigator{
		w:       w,
		baseURL: strings.TrimRight(baseURL, "/"),
		message: session.MessagesFor(locale).SessionExpired,
	}
}

func (n *navigator) Redirect(ctx context.Context, path string) {
	fmt.Fprintln(n.w, warnStyle.Render(n.message))
	fmt.Fprintln(n.w, "Run 'cicdai auth login' to continue.")
	if path != "" {
		fmt.Fprintf(n.w, "%s\n", mutedStyle.Render("Web sign-in: "+n.baseURL+path))
	}
}
