package lens

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-analyze/bulk"
	"github.com/go-analyze/charts"
)

const bottomTableMaxRecords = 10

// chart color constants
var greenTextColor = charts.ColorGreenAlt3
var orangeTextColor = charts.ColorOrangeAlt1.WithAdjustHSL(0, .2, 0)
var redTextColor = charts.ColorRed.WithAdjustHSL(0, .1, -.1)

// RenderStatisticsChart renders pass / fail gauges for the total statistics and a table of the failing tags and
// suites to a png.
func RenderStatisticsChart(title string, stats *Statistics) ([]byte, error) {
	painterOpt := charts.PainterOptions{
		OutputFormat: charts.ChartOutputPNG,
		Width:        1024,
		Height:       768,
	}
	return renderStatisticsChart(painterOpt, title, stats)
}

// WriteStatisticsChart renders the statistics chart to path, the image type is selected by the file extension.
func WriteStatisticsChart(path, title string, stats *Statistics) error {
	var outputType string
	if strings.HasSuffix(path, ".png") {
		outputType = charts.ChartOutputPNG
	} else if strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg") {
		outputType = charts.ChartOutputJPG
	} else if strings.HasSuffix(path, ".svg") {
		outputType = charts.ChartOutputSVG
	} else {
		return fmt.Errorf("unhandled chart file type: %s", path)
	}

	painterOpt := charts.PainterOptions{
		OutputFormat: outputType,
		Width:        1024,
		Height:       1024,
	}
	if buf, err := renderStatisticsChart(painterOpt, title, stats); err != nil {
		return fmt.Errorf("render charts failed: %w", err)
	} else if err = os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write chart file failed: %w", err)
	}
	return nil
}

func renderStatisticsChart(painterOpt charts.PainterOptions, title string, stats *Statistics) ([]byte, error) {
	p := charts.NewPainter(painterOpt)
	if chartBox, err := renderStatisticsToPainter(p, title, stats); err != nil {
		return nil, err
	} else if chartBox.Height() < p.Height()-128 || chartBox.Height() > p.Height() {
		// re-render with a smaller painter to better fit the charts
		painterOpt.Height = chartBox.Height()
		p = charts.NewPainter(painterOpt)
		if _, err := renderStatisticsToPainter(p, title, stats); err != nil {
			return nil, err
		}
	}
	return p.Bytes()
}

// failingStatRows returns table rows for tag and suite statistics with failures, most failures first.
func failingStatRows(stats *Statistics) [][]string {
	failing := func(s Stat) bool {
		return s.Fail > 0
	}
	var rows [][]string
	addRows := func(kind string, list []Stat) {
		for _, s := range bulk.SliceFilter(failing, list) {
			rows = append(rows, []string{
				s.Label, kind, strconv.FormatInt(s.Pass, 10), strconv.FormatInt(s.Fail, 10),
			})
		}
	}
	addRows("Tag", stats.Tags)
	addRows("Suite", stats.Suites)
	slices.SortStableFunc(rows, func(a, b []string) int {
		aFail, _ := strconv.Atoi(a[3])
		bFail, _ := strconv.Atoi(b[3])
		return bFail - aFail
	})
	if len(rows) > bottomTableMaxRecords {
		rows = rows[:bottomTableMaxRecords]
	}
	return rows
}

func renderStatisticsToPainter(p *charts.Painter, title string, stats *Statistics) (charts.Box, error) {
	const chartPadding = 10
	resultBox := charts.NewBoxEqual(0)
	resultBox.Right = p.Width()
	p.FilledRect(0, 0, p.Width(), p.Height(), charts.ColorWhite, charts.ColorWhite, 0)
	p = p.Child(charts.PainterPaddingOption(charts.NewBox(0, chartPadding, chartPadding, chartPadding)))

	var titleBox charts.Box
	var titleBottom int
	titleFont := charts.FontStyle{
		FontSize:  16,
		FontColor: charts.ColorBlack,
		Font:      charts.GetDefaultFont(),
	}
	if title != "" {
		titleBox = p.MeasureText(title, 0, titleFont)
		// title rendered after the charts to ensure it does not get clipped
		titleBottom = titleBox.Height()
		resultBox.Bottom += titleBottom
	}

	layoutBuilder := p.LayoutByRows()
	if titleBottom > 0 {
		layoutBuilder = layoutBuilder.RowGap(strconv.Itoa(titleBottom))
	}
	painters, err := layoutBuilder.
		Row().Height("128").Columns("left", "right").
		Row().Columns("bottom"). // single large painter at the bottom with all remaining space
		Build()
	if err != nil {
		return resultBox, fmt.Errorf("error building chart layout: %w", err)
	}
	bottom := painters["bottom"]

	barGaugeThemeGreenRed := charts.GetTheme(charts.ThemeLight).
		WithBackgroundColor(charts.ColorTransparent).
		WithSeriesColors([]charts.Color{
			charts.ColorGreenAlt1,
			charts.ColorRed,
		})

	// the total statistics are critical tests followed by all tests
	gauges := []*charts.Painter{painters["left"], painters["right"]}
	var gaugeHeight int
	for i, gauge := range gauges {
		if i >= len(stats.Total) {
			break
		}
		total := stats.Total[i]
		opt := charts.NewHorizontalBarChartOptionWithData([][]float64{
			{float64(total.Pass)}, {float64(total.Fail)},
		})
		opt.StackSeries = charts.Ptr(true)
		opt.Theme = barGaugeThemeGreenRed
		opt.Title.Text = total.Label
		opt.XAxis.Unit = axisUnitForMax(int(total.Total()))
		opt.YAxis.Show = charts.Ptr(false)
		opt.SeriesList[1].Label.Show = charts.Ptr(true)
		opt.SeriesList[1].Label.FontStyle.FontColor = firstValueSeriesRankColor(opt.Theme, opt.SeriesList)
		opt.SeriesList[1].Label.ValueFormatter = func(f float64) string {
			count := float64(total.Total())
			if count == 0 {
				return "No tests"
			}
			return charts.FormatValueHumanize(100.0*(count-f)/count, 1, false) + "% passed"
		}
		if err := gauge.HorizontalBarChart(opt); err != nil {
			return resultBox, fmt.Errorf("error rendering chart: %w", err)
		}
		gaugeHeight = max(gaugeHeight, gauge.Height())
	}
	resultBox.Bottom += gaugeHeight

	rows := failingStatRows(stats)
	if len(rows) == 0 {
		text := "No Failures"
		textBox := bottom.MeasureText(text, 0, titleFont)
		bottom.Text(text, (bottom.Width()-textBox.Width())/2, bottom.Height()/2, 0, titleFont)
		resultBox.Bottom += textBox.Height() * 2
	} else {
		tableTitle := "Failing Tags and Suites"
		tableTitleFont := charts.FontStyle{
			FontSize:  12,
			FontColor: barGaugeThemeGreenRed.GetTitleTextColor(),
			Font:      charts.GetDefaultFont(),
		}
		tableTitleBox := bottom.MeasureText(tableTitle, 0, tableTitleFont)
		bottom.Text(tableTitle, 10, tableTitleBox.Height(), 0, tableTitleFont)
		rowColors := []charts.Color{
			{R: 240, G: 240, B: 240, A: 255},
			charts.ColorTransparent,
		}
		if len(rows)%2 == 0 {
			// reverse row colors so table end is opposite of transparent
			rowColors[0], rowColors[1] = rowColors[1], rowColors[0]
		}
		defaultCellFontStyle := charts.FontStyle{
			FontSize:  12,
			FontColor: charts.Color{R: 50, G: 50, B: 50, A: 255},
			Font:      charts.GetDefaultFont(),
		}
		bottomOpt := charts.TableChartOption{
			Header:                []string{"Name", "Kind", "Passed", "Failed"},
			Data:                  rows,
			HeaderBackgroundColor: charts.Color{R: 210, G: 210, B: 210, A: 255},
			RowBackgroundColors:   rowColors,
			Padding:               charts.NewBoxEqual(10),
			Spans:                 []int{32, 8, 8, 8},
			TextAligns:            []string{charts.AlignLeft, charts.AlignLeft, charts.AlignCenter, charts.AlignCenter},
			CellModifier: func(cell charts.TableCell) charts.TableCell {
				if cell.Row == 0 {
					return cell
				}
				cell.FontStyle = defaultCellFontStyle // reset on each call to prevent prior changes persisting

				switch cell.Column {
				case 2:
					cell.FontStyle.FontColor = greenTextColor
				case 3:
					if len(cell.Text) < 2 { // less than 10
						cell.FontStyle.FontColor = orangeTextColor
					} else {
						cell.FontStyle.FontColor = redTextColor
					}
				}
				return cell
			},
		}
		tablePainter := bottom.Child(charts.PainterPaddingOption(charts.NewBox(10, tableTitleBox.Height()+8, 0, 0)))
		if err := tablePainter.TableChart(bottomOpt); err != nil {
			return resultBox, fmt.Errorf("error rendering table: %w", err)
		}
		// re-render to measure the table, charts does not return the rendered table size
		bottomOpt.Width = bottom.Width()
		if p, _ := charts.TableOptionRenderDirect(bottomOpt); p != nil {
			resultBox.Bottom += tableTitleBox.Height() + p.Height()
		} else {
			resultBox.Bottom += bottom.Height()
		}
	}

	if title != "" {
		p.Text(title, (p.Width()/2)-(titleBox.Width()/2), titleBox.Height(), 0, titleFont)
	}
	return resultBox, nil
}

func firstValueSeriesRankColor(theme charts.ColorPalette, sl charts.HorizontalBarSeriesList) charts.Color {
	sum := sl.SumSeriesValues()
	if sl[0].Values[0] < sum[0]/2 {
		return redTextColor
	} else if sl[0].Values[0] < sum[0]*.8 {
		return orangeTextColor
	} else {
		return theme.GetLabelTextColor()
	}
}

func axisUnitForMax(val int) float64 {
	if val >= 8000 {
		return 2000
	} else if val > 2000 {
		return 1000
	} else if val >= 800 {
		return 200
	} else if val > 200 {
		return 100
	} else if val >= 80 {
		return 20
	} else if val > 20 {
		return 10
	} else if val >= 10 {
		return 2
	} else {
		return 1
	}
}
