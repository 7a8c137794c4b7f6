package pdf

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ReportSummary is the printable view of a picket report.
type ReportSummary struct {
	ID        string
	Title     string
	Picketer  string
	Status    string
	Location  string
	Submitter string
	Date      time.Time
	Images    []string
}

// RenderReport lays out summary as a single PDF document.
func RenderReport(ctx context.Context, summary ReportSummary) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	title := summary.Title
	if title == "" {
		title = "Picket report"
	}
	m.AddRow(20,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(36,
		col.New(6).Add(
			text.New("Report: "+summary.ID, props.Text{Top: 0, Size: 9}),
			text.New("Date: "+summary.Date.UTC().Format("2006-01-02 15:04 MST"), props.Text{Top: 5, Size: 9}),
			text.New("Status: "+valueOrDash(summary.Status), props.Text{Top: 10, Size: 9}),
		),
		col.New(6).Add(
			text.New("Picketer: "+valueOrDash(summary.Picketer), props.Text{Top: 0, Size: 9}),
			text.New("Submitted by: "+valueOrDash(summary.Submitter), props.Text{Top: 5, Size: 9}),
			text.New("Location: "+valueOrDash(summary.Location), props.Text{Top: 10, Size: 9}),
		),
	)

	m.AddRow(10,
		text.NewCol(12, fmt.Sprintf("Photos (%d)", len(summary.Images)), props.Text{
			Style: fontstyle.Bold,
			Size:  11,
		}),
	)
	for i, url := range summary.Images {
		m.AddRow(7,
			text.NewCol(1, fmt.Sprintf("%d.", i+1), props.Text{Size: 8, Align: align.Right}),
			text.NewCol(11, url, props.Text{Size: 8, Left: 2}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generate report: %w", err)
	}
	return doc.GetBytes(), nil
}

func valueOrDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
