package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/moderation"
	"github.com/technopolis/careers-portal/internal/rbac"
)

var adminOnly = rbac.RequireRoles(authstore.RoleAdmin)

// requireAdmin applies the same decision the web guard makes.
func (e *env) requireAdmin() error {
	switch rbac.Decide(e.store.Snapshot(), adminOnly, "").Outcome {
	case rbac.RedirectLogin:
		return errors.New("not signed in, run portalctl login")
	case rbac.RedirectHome:
		return errors.New("moderation requires the admin role")
	default:
		return nil
	}
}

func pendingCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show everything waiting for moderation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.requireAdmin(); err != nil {
				return err
			}
			board, err := moderation.NewService(e.client, nil).LoadPending(cmd.Context())
			if err != nil {
				return e.expire(err)
			}
			if e.opts.JSON {
				return e.printJSON(board)
			}
			fmt.Fprintf(e.out, "pending: %d\n", board.Total())
			tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SECTION\tID\tSUMMARY")
			for _, l := range board.Vacancies {
				fmt.Fprintf(tw, "%s\t%d\t%s, %s\n", moderation.SectionVacancies, l.ID, l.Title, l.CompanyName)
			}
			for _, l := range board.Internships {
				fmt.Fprintf(tw, "%s\t%d\t%s, %s\n", moderation.SectionInternships, l.ID, l.Title, l.CompanyName)
			}
			for _, u := range board.Users {
				fmt.Fprintf(tw, "%s\t%d\t%s, %s\n", moderation.SectionUsers, u.ID, u.Email, u.Role)
			}
			return tw.Flush()
		},
	}
}

func parseTarget(args []string) (moderation.Section, int64, error) {
	section, err := moderation.ParseSection(args[0])
	if err != nil {
		return "", 0, err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("invalid id %q", args[1])
	}
	return section, id, nil
}

func publishCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <section> <id>",
		Short: "Approve a pending vacancy, internship or user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireAdmin(); err != nil {
				return err
			}
			section, id, err := parseTarget(args)
			if err != nil {
				return err
			}
			if err := moderation.NewService(e.client, nil).Publish(cmd.Context(), section, id); err != nil {
				return e.expire(err)
			}
			fmt.Fprintf(e.out, "published %s/%d\n", section, id)
			return nil
		},
	}
}

func rejectCmd(e *env) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <section> <id>",
		Short: "Reject a pending vacancy, internship or user with a reason",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.requireAdmin(); err != nil {
				return err
			}
			section, id, err := parseTarget(args)
			if err != nil {
				return err
			}
			svc := moderation.NewService(e.client, nil)
			if _, err := svc.CheckReason(reason); err != nil {
				return errors.New("reason must be between 10 and 500 characters")
			}
			if err := svc.Reject(cmd.Context(), section, id, reason); err != nil {
				return e.expire(err)
			}
			fmt.Fprintf(e.out, "rejected %s/%d\n", section, id)
			return nil
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "why the entry is rejected")
	return cmd
}
