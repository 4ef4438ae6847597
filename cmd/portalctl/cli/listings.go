package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/technopolis/careers-portal/internal/listings"
	"github.com/technopolis/careers-portal/internal/view"
)

func listingsCmd(e *env) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List published vacancies and internships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := listings.NewService(e.client)
			var items []listings.Listing
			if kind == "" {
				board, err := svc.Board(cmd.Context())
				if err != nil {
					return e.expire(err)
				}
				items = append(board.Vacancies, board.Internships...)
			} else {
				k, err := listings.ParseKind(kind)
				if err != nil {
					return err
				}
				items, err = svc.Published(cmd.Context(), k)
				if err != nil {
					return e.expire(err)
				}
			}
			if e.opts.JSON {
				return e.printJSON(items)
			}
			return writeListings(e.out, items)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "vacancy or internship, both when empty")
	return cmd
}

func writeListings(out io.Writer, items []listings.Listing) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "nothing to show")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tTITLE\tCOMPANY\tLOCATION\tSALARY")
	for _, l := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", l.Kind, l.ID, l.Title, l.CompanyName, l.WorkLocation,
			view.FormatSalary(l.SalaryMin, l.SalaryMax, l.SalaryCurrency))
	}
	return tw.Flush()
}
