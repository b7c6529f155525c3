package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/verdantiq/esg-cli/internal/compliance"
	"github.com/verdantiq/esg-cli/internal/framework"
)

var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List supported disclosure and scoring frameworks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fwCatalog, err := framework.LoadCatalog()
		if err != nil {
			return eris.Wrap(err, "load framework catalog")
		}
		scoringCatalog, err := compliance.LoadCatalog()
		if err != nil {
			return eris.Wrap(err, "load scoring catalog")
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVERSION\tMETRICS\tREQUIREMENTS")
		for _, def := range fwCatalog.Frameworks {
			reqs := "-"
			if fw, ok := scoringCatalog.Get(def.ID); ok {
				reqs = fmt.Sprintf("%d", len(fw.Requirements))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
				def.ID, def.Name, def.Version, len(def.Metrics), reqs)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(frameworksCmd)
}
