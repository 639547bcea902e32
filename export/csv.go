package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/golang/glog"
)

// CSV writes samples to Out, or stdout when Out is nil.
type CSV struct {
	Out io.Writer
}

func (c *CSV) Write(ctx context.Context, samples <-chan Sample) error {
	out := c.Out
	if out == nil {
		out = os.Stdout
	}
	w := csv.NewWriter(out)
	w.Write([]string{
		"Identifier",
		"Baseline",
		"Mode",
		"Series",
		"Row",
		"Col",
		"X",
		"Y",
		"Value",
		"Masked",
	})

	for s := range samples {
		if err := w.Write([]string{
			s.Identifier,
			s.Baseline,
			s.Mode,
			s.Series,
			fmt.Sprintf("%d", s.Row),
			fmt.Sprintf("%d", s.Col),
			fmt.Sprintf("%g", s.X),
			fmt.Sprintf("%g", s.Y),
			fmt.Sprintf("%g", s.Value),
			fmt.Sprintf("%t", s.Masked),
		}); err != nil {
			glog.Warningf("error while writing CSV line: %s\n", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error flushing CSV: %w", err)
	}
	return nil
}
