// Package cli implements portalctl, a terminal client for the careers portal
// backend. The signed-in session survives between invocations in a JSON file
// under the user config directory.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
)

const appName = "technopolis-portal"

// ErrSessionExpired is returned after the backend rejected the stored token.
var ErrSessionExpired = errors.New("session expired, run portalctl login")

// Options are the persistent flags shared by every command.
type Options struct {
	BackendURL  string
	SessionFile string
	Timeout     time.Duration
	JSON        bool
}

type env struct {
	opts   *Options
	out    io.Writer
	errOut io.Writer
	store  *authstore.Store
	client *backend.Client
}

// NewRootCommand builds the portalctl command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	opts := &Options{}
	e := &env{opts: opts, out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Terminal client for the Technopolis careers portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.open(cmd)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.BackendURL, "backend", envOr("BACKEND_URL", "http://localhost:8000/api/v1"), "backend API base URL")
	flags.StringVar(&opts.SessionFile, "session-file", os.Getenv("PORTAL_SESSION_FILE"), "where the signed-in session is kept")
	flags.DurationVar(&opts.Timeout, "timeout", 20*time.Second, "per-request timeout")
	flags.BoolVar(&opts.JSON, "json", false, "print JSON instead of tables")

	root.AddCommand(
		loginCmd(e),
		logoutCmd(e),
		whoamiCmd(e),
		listingsCmd(e),
		pendingCmd(e),
		publishCmd(e),
		rejectCmd(e),
	)
	return root
}

func (e *env) open(cmd *cobra.Command) error {
	path := e.opts.SessionFile
	if path == "" {
		p, err := authstore.DefaultFilePath(appName)
		if err != nil {
			return fmt.Errorf("locate session file: %w", err)
		}
		path = p
	}
	e.store = authstore.Open(cmd.Context(), appName, authstore.NewFilePersister(path))
	e.client = backend.NewClient(e.opts.BackendURL, e.store, backend.WithTimeout(e.opts.Timeout))
	return nil
}

// expire drops the stored session when err is a backend 401.
func (e *env) expire(err error) error {
	if backend.IsUnauthorized(err) {
		e.store.Logout()
		return ErrSessionExpired
	}
	return err
}

func (e *env) printJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
