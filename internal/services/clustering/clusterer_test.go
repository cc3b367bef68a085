package clustering

import (
	"testing"
	"time"

	"LPPLWatch/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func row(d string, pos, neg float64) models.AggregatedRow {
	return models.AggregatedRow{Time: day(d), PosConf: pos, NegConf: neg}
}

func TestClusterGapRule(t *testing.T) {
	rows := []models.AggregatedRow{
		row("2024-01-09", 0, 0),
		row("2024-01-10", 0.2, 0),
		row("2024-01-11", 0.6, 0),
		row("2024-01-12", 0, 0.1),
		row("2024-01-13", 0.1, 0),
	}

	got := Cluster(rows, models.PosConf, models.LabelTop)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-10 to 2024-01-11", got[0].DateRange())
	assert.Equal(t, 0.6, got[0].PeakConfidence)
	assert.Equal(t, "2024-01-13", got[1].DateRange())
	assert.Equal(t, 0.1, got[1].PeakConfidence)
	assert.Equal(t, models.LabelTop, got[1].Label)
}

func TestClusterEmpty(t *testing.T) {
	rows := []models.AggregatedRow{row("2024-01-01", 0, 0), row("2024-01-02", 0, 0)}
	assert.Empty(t, Cluster(rows, models.NegConf, models.LabelBottom))
	assert.Empty(t, Cluster(nil, models.PosConf, models.LabelTop))
}

func TestClusterIsIdempotentOnMinimalInput(t *testing.T) {
	rows := []models.AggregatedRow{
		row("2024-02-01", 0.3, 0),
		row("2024-02-05", 0.7, 0),
		row("2024-02-10", 0.1, 0),
	}
	first := Cluster(rows, models.PosConf, models.LabelTop)

	minimal := make([]models.AggregatedRow, len(first))
	for i, c := range first {
		minimal[i] = models.AggregatedRow{Time: c.Start, PosConf: c.PeakConfidence}
	}
	assert.Equal(t, first, Cluster(minimal, models.PosConf, models.LabelTop))
}

func TestClusterNeverCoversZeroDays(t *testing.T) {
	rows := []models.AggregatedRow{
		row("2024-03-01", 0.4, 0.1),
		row("2024-03-02", 0, 0.2),
		row("2024-03-03", 0.5, 0),
		row("2024-03-04", 0.5, 0),
		row("2024-03-06", 0, 0.3),
		row("2024-03-07", 0.2, 0.3),
	}
	byDay := make(map[time.Time]models.AggregatedRow)
	for _, r := range rows {
		byDay[r.Time] = r
	}

	for _, c := range Detect(rows) {
		sel := models.PosConf
		if c.Label == models.LabelBottom {
			sel = models.NegConf
		}
		for d := c.Start; !d.After(c.End); d = d.AddDate(0, 0, 1) {
			r, ok := byDay[d]
			require.True(t, ok, "cluster %s covers missing day %s", c.DateRange(), d)
			assert.Greater(t, sel(r), 0.0, "cluster %s %s covers zero day", c.Label, c.DateRange())
		}
	}
}

func TestMergeOrdersMostRecentFirstTopBeforeBottomOnTies(t *testing.T) {
	tops := []models.Cluster{
		{Start: day("2024-01-01"), End: day("2024-01-02"), Label: models.LabelTop},
		{Start: day("2024-01-10"), End: day("2024-01-10"), Label: models.LabelTop},
	}
	bottoms := []models.Cluster{
		{Start: day("2024-01-05"), End: day("2024-01-05"), Label: models.LabelBottom},
		{Start: day("2024-01-10"), End: day("2024-01-11"), Label: models.LabelBottom},
	}

	got := Merge(tops, bottoms)
	require.Len(t, got, 4)
	assert.Equal(t, models.LabelTop, got[0].Label)
	assert.Equal(t, day("2024-01-10"), got[0].Start)
	assert.Equal(t, models.LabelBottom, got[1].Label)
	assert.Equal(t, day("2024-01-10"), got[1].Start)
	assert.Equal(t, day("2024-01-05"), got[2].Start)
	assert.Equal(t, day("2024-01-01"), got[3].Start)

	top, bottom := Count(got)
	assert.Equal(t, 2, top)
	assert.Equal(t, 2, bottom)
}
