package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderReportProducesPDF(t *testing.T) {
	doc, err := RenderReport(context.Background(), ReportSummary{
		ID:        "c1a1",
		Title:     "Picket at city hall",
		Picketer:  "Petrov Ivan",
		Status:    "done",
		Location:  "City hall",
		Submitter: "Sidorova Anna",
		Date:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Images:    []string{"/public/a.jpg", "/public/b.jpg"},
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestRenderReportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RenderReport(ctx, ReportSummary{})
	require.ErrorIs(t, err, context.Canceled)
}
