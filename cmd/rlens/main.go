package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"strings"

	"github.com/PatchLens/go-result-lens/lens"
	"github.com/PatchLens/go-result-lens/lens/cmd"
)

const pprofDebug = false

func main() {
	log.SetFlags(log.LstdFlags)

	if pprofDebug {
		go func() {
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Printf("pprof server failure: %v", err)
			}
		}()
	}

	config, err := cmd.ParseFlags(nil) // No custom flags for standard rlens
	if err != nil {
		log.Fatalf("%s%v", lens.ErrorLogPrefix, err)
	}

	report, err := config.OpenReport()
	if err != nil {
		log.Fatalf("%s%v", lens.ErrorLogPrefix, err)
	}
	if config.Predecode {
		if err := report.Pool().DecodeAll(context.Background()); err != nil {
			log.Fatalf("%sFailed to decode string pool: %v", lens.ErrorLogPrefix, err)
		}
	}
	root, err := report.Suite()
	if err != nil {
		log.Fatalf("%sFailed to decode report: %v", lens.ErrorLogPrefix, err)
	}
	log.Printf("Report %s generated %s, %d elements", root.FullName(), report.Generated().Format("2006-01-02 15:04:05"), report.NodeCount())

	printPath := func(kind, fullName string, path []lens.ElementID) {
		if fullName == "" {
			return
		} else if len(path) == 0 {
			log.Printf("WARN: no %s named %s", kind, fullName)
			return
		}
		ids := make([]string, len(path))
		for i, id := range path {
			ids[i] = fmt.Sprint(id)
		}
		fmt.Printf("%s %s: %s\n", kind, fullName, strings.Join(ids, " > "))
	}
	printPath("suite", config.SuitePath, report.PathToSuite(config.SuitePath))
	printPath("test", config.TestPath, report.PathToTest(config.TestPath))
	printPath("keyword", config.KeywordPath, report.PathToKeyword(config.KeywordPath))

	if config.FindID > 0 {
		if node, ok := report.Find(lens.ElementID(config.FindID)); ok {
			fmt.Println(describe(node))
		} else {
			log.Printf("WARN: no element with id %d", config.FindID)
		}
	}
	if config.ShowErrors {
		errs, err := report.Errors()
		if err != nil {
			log.Fatalf("%sFailed to decode errors: %v", lens.ErrorLogPrefix, err)
		}
		for _, msg := range errs {
			fmt.Printf("%s [%s] %s\n", msg.Timestamp.Format("15:04:05.000"), strings.ToUpper(string(msg.Level)), msg.Text)
		}
	}
	stats, err := report.Statistics()
	if err != nil {
		log.Fatalf("%sFailed to decode statistics: %v", lens.ErrorLogPrefix, err)
	}
	if config.ShowStats {
		for _, group := range [][]lens.Stat{stats.Total, stats.Tags, stats.Suites} {
			for _, s := range group {
				fmt.Printf("%-40s pass %-6d fail %d\n", s.Label, s.Pass, s.Fail)
			}
		}
	}
	if config.ChartsFile != "" {
		if err := lens.WriteStatisticsChart(config.ChartsFile, root.FullName(), stats); err != nil {
			log.Fatalf("%s%v", lens.ErrorLogPrefix, err)
		}
		log.Println("Chart file wrote: " + config.ChartsFile)
	}
}

func describe(node lens.Node) string {
	switch n := node.(type) {
	case *lens.Suite:
		return fmt.Sprintf("suite %s [%s] %d tests, %d failed", n.FullName(), n.Status(), n.Statistics.Total, n.Statistics.TotalFailed)
	case *lens.Test:
		return fmt.Sprintf("test %s [%s] %s", n.FullName(), n.Status(), n.Message)
	case *lens.Keyword:
		return fmt.Sprintf("%s %s [%s] %s", strings.ToLower(string(n.Type)), n.FullName(), n.Status(), n.Args)
	case *lens.Message:
		return fmt.Sprintf("message [%s] %s", strings.ToUpper(string(n.Level)), n.Text)
	}
	return fmt.Sprintf("element %d", node.ID())
}
