package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/common/expfmt"

	dto "github.com/prometheus/client_model/go"
)

// WriteSnapshot gathers the collector's registry and writes a
// text-format dump to w. Used on shutdown so a completed run leaves a
// machine-readable record behind even when nothing scraped it.
func (c *Collector) WriteSnapshot(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	return encodeFamilies(w, families)
}

func encodeFamilies(w io.Writer, families []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		return closer.Close()
	}
	return nil
}
