package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/firmckpt/internal/checkpoint"
)

const (
	chartWidth  = "100%"
	chartHeight = "480px"
	chartTitle  = "Firms per pipeline stage"

	colorPipeline = "#5470c6"
	colorOther    = "#fac858"
)

// WriteHTML renders a bar chart of firm counts per stage as a standalone page.
func WriteHTML(w io.Writer, s *checkpoint.Summary) error {
	err := stageChart(s).Render(w)
	if err != nil {
		return fmt.Errorf("render stage chart: %w", err)
	}

	return nil
}

func stageChart(s *checkpoint.Summary) *charts.Bar {
	bar := charts.NewBar()

	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: chartTitle,
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    chartTitle,
			Left:     "center",
			Subtitle: fmt.Sprintf("%s: %d checkpoints, %d corrupt", s.Dir, s.Total, s.Corrupt),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithGridOpts(opts.Grid{Top: "20%", Left: "5%", Right: "5%", ContainLabel: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Firms"}),
	)

	stages := s.OrderedStages()
	data := make([]opts.BarData, len(stages))

	for i, stage := range stages {
		fill := colorOther
		if slices.Contains(checkpoint.PipelineStages, stage) {
			fill = colorPipeline
		}

		data[i] = opts.BarData{
			Name:      stage,
			Value:     s.Counts[stage],
			ItemStyle: &opts.ItemStyle{Color: fill},
		}
	}

	bar.SetXAxis(stages)
	bar.AddSeries("Firms", data)

	return bar
}
