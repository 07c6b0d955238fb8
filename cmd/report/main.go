package main

import (
	"flag"
	"log"

	"github.com/PatchLens/go-result-lens/lens"
)

func main() {
	log.SetFlags(log.LstdFlags | log.LUTC)

	payloadFile := flag.String("input", "output.js", "Report payload file (.js, .json, or .msgpack)")
	reportChartsFile := flag.String("charts", "statistics.png", "File to output the statistics chart image")
	title := flag.String("title", "", "Chart title, defaults to the generation time")
	flag.Parse()

	payload, _, err := lens.LoadPayloadFile(*payloadFile)
	if err != nil {
		log.Fatalf("%sFailed to read payload: %v", lens.ErrorLogPrefix, err)
	}
	report, err := lens.NewReport(payload, lens.PoolOptions{})
	if err != nil {
		log.Fatalf("%sFailed to open report: %v", lens.ErrorLogPrefix, err)
	}
	if *title == "" {
		*title = "Generated " + report.Generated().Format("2006-01-02 15:04:05")
	}

	stats, err := report.Statistics()
	if err != nil {
		log.Fatalf("%sFailed to decode statistics: %v", lens.ErrorLogPrefix, err)
	}

	if err := lens.WriteStatisticsChart(*reportChartsFile, *title, stats); err != nil {
		log.Fatalf("%sFailed to render charts: %v", lens.ErrorLogPrefix, err)
	}
	log.Println("Report file wrote: " + *reportChartsFile)
}
