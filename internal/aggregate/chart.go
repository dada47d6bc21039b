package aggregate

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes a standalone HTML page with the day's traffic volume
// and mean speed per 15-minute bin. Presentation only; the aggregated
// numbers in Day are the contract.
func RenderChart(w io.Writer, d *Day, label string) error {
	labels := make([]string, 0, BinsPerDay)
	upCounts := make([]opts.BarData, 0, BinsPerDay)
	dnCounts := make([]opts.BarData, 0, BinsPerDay)
	upSpeeds := make([]opts.LineData, 0, BinsPerDay)
	dnSpeeds := make([]opts.LineData, 0, BinsPerDay)

	for i, b := range d.Bins {
		labels = append(labels, fmt.Sprintf("%02d:%02d", i/4, (i%4)*15))
		upCounts = append(upCounts, opts.BarData{Value: b.Up})
		dnCounts = append(dnCounts, opts.BarData{Value: b.Down})
		upSpeeds = append(upSpeeds, speedPoint(b.UpSpeed))
		dnSpeeds = append(dnSpeeds, speedPoint(b.DnSpeed))
	}

	volume := charts.NewBar()
	volume.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Traffic " + label, Width: "1400px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: "Vehicles per 15 minutes", Subtitle: label}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	volume.SetXAxis(labels).
		AddSeries("uphill", upCounts).
		AddSeries("downhill", dnCounts)

	speed := charts.NewLine()
	speed.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "400px"}),
		charts.WithTitleOpts(opts.Title{Title: "Mean speed per 15 minutes (mph)", Subtitle: label}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	speed.SetXAxis(labels).
		AddSeries("uphill", upSpeeds).
		AddSeries("downhill", dnSpeeds)

	page := components.NewPage()
	page.PageTitle = "Traffic " + label
	page.AddCharts(volume, speed)
	return page.Render(w)
}

// speedPoint leaves a gap in the line where a bin has no usable speeds.
func speedPoint(s SpeedStats) opts.LineData {
	if s.N == 0 {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: s.Mean()}
}
