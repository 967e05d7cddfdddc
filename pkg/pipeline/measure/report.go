package measure

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/askiada/fuel-migrate/pkg/pipeline/model"
)

// Report writes one line per stage with the number of elements it handled and the
// average time spent on each.
func Report(w io.Writer, msr Measure) error {
	metrics := msr.AllMetrics()

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		if name == model.StartStep.Details.Name || name == model.EndStep.Details.Name {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tCOUNT\tAVG\tTOTAL")

	for _, name := range names {
		mt := metrics[name]
		total := "-"
		if mt.GetTotalDuration() > 0 {
			total = round(mt.GetTotalDuration()).String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", name, mt.Count(), mt.AVGDuration(), total)
	}

	return errors.Wrap(tw.Flush(), "unable to write measure report")
}
