package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/technopolis/careers-portal/internal/auth"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
)

func loginCmd(e *env) *cobra.Command {
	var creds auth.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv("PORTAL_PASSWORD")
			}
			if err := shared.NewValidator().Struct(creds); err != nil {
				return fmt.Errorf("invalid credentials: %v", shared.FieldErrors(err))
			}
			snap, err := auth.NewService(e.client).Authenticate(cmd.Context(), creds)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidCredentials) {
					return errors.New("wrong email or password")
				}
				return err
			}
			e.store.Login(snap.Token, snap.User)
			fmt.Fprintf(e.out, "signed in as %s (%s)\n", snap.User.Email, view.RoleLabel(snap.User.Role))
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password, or PORTAL_PASSWORD")
	return cmd
}

func logoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			e.store.Logout()
			fmt.Fprintln(e.out, "signed out")
			return nil
		},
	}
}

func whoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			snap := e.store.Snapshot()
			if e.opts.JSON {
				return e.printJSON(map[string]any{
					"authenticated": snap.IsAuthenticated(),
					"user":          snap.User,
				})
			}
			if !snap.IsAuthenticated() {
				fmt.Fprintln(e.out, "not signed in")
				return nil
			}
			fmt.Fprintf(e.out, "%s (%s), id %d\n", snap.User.Email, view.RoleLabel(snap.User.Role), snap.User.ID)
			return nil
		},
	}
}
