package report

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/bagaart/TaskFlow/internal/models"
)

type RenderOptions struct {
	IncludeCharts bool
	GeneratedAt   time.Time
}

type Renderer interface {
	Format() models.ReportFormat
	Render(ctx context.Context, ds *Dataset, opts RenderOptions, w io.Writer) error
}

// JSONRenderer writes the records as a top-level, two-space indented array.
type JSONRenderer struct{}

func (JSONRenderer) Format() models.ReportFormat {
	return models.FormatJSON
}

func (JSONRenderer) Render(ctx context.Context, ds *Dataset, opts RenderOptions, w io.Writer) error {
	records := ds.Records
	if records == nil {
		records = []any{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return &RenderError{Format: models.FormatJSON, Err: err}
	}
	return nil
}
