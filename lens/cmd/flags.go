package cmd

import (
	"flag"
	"strconv"

	"github.com/PatchLens/go-result-lens/lens"
)

// CustomFlag defines a custom CLI option.
type CustomFlag struct {
	Name         string
	DefaultValue any
	Usage        string
	Type         string // "string", "int", "bool"
}

// ParseFlags builds Config from standard and custom flags.
func ParseFlags(customFlags []CustomFlag) (*lens.Config, error) {
	config := &lens.Config{CustomFlags: make(map[string]string)}

	// Define all standard flags
	inputFile := flag.String("input", "", "Path to the report payload (.js, .json, or .msgpack)")
	cacheDir := flag.String("cache", "", "Directory for the parsed payload cache, disabled if empty")
	cacheMB := flag.Int("cachemb", 64, "Cache memory budget in MB")
	cacheMetrics := flag.Bool("cachemetrics", false, "Log the payload cache index metrics")
	encoding := flag.String("encoding", string(lens.EncodingBase64), "String pool text encoding: base64 (default), base91")
	compression := flag.String("compression", string(lens.CompressionZlib), "String pool compression: zlib (default), zstd, snappy, none")
	suitePath := flag.String("suite", "", "Full name of a suite to locate")
	testPath := flag.String("test", "", "Full name of a test to locate")
	keywordPath := flag.String("keyword", "", "Full name of a keyword to locate")
	findID := flag.Int("find", 0, "Element id to describe")
	showStats := flag.Bool("stats", false, "Print the report statistics")
	showErrors := flag.Bool("errors", false, "Print the report level errors")
	predecode := flag.Bool("predecode", false, "Decode the full string pool concurrently before building the tree")
	chartsFile := flag.String("charts", "", "File to output the statistics chart image")

	// Define custom flags
	customPtrs := make(map[string]interface{})
	for _, cf := range customFlags {
		switch cf.Type {
		case "string":
			customPtrs[cf.Name] = flag.String(cf.Name, cf.DefaultValue.(string), cf.Usage)
		case "int":
			customPtrs[cf.Name] = flag.Int(cf.Name, cf.DefaultValue.(int), cf.Usage)
		case "bool":
			customPtrs[cf.Name] = flag.Bool(cf.Name, cf.DefaultValue.(bool), cf.Usage)
		}
	}

	flag.Parse()

	// Populate config
	config.InputFile = *inputFile
	config.CacheDir = *cacheDir
	config.CacheMB = *cacheMB
	config.CacheMetrics = *cacheMetrics
	config.Encoding = *encoding
	config.Compression = *compression
	config.SuitePath = *suitePath
	config.TestPath = *testPath
	config.KeywordPath = *keywordPath
	config.FindID = *findID
	config.ShowStats = *showStats
	config.ShowErrors = *showErrors
	config.Predecode = *predecode
	config.ChartsFile = *chartsFile

	// Populate custom flags - convert all to strings for ease of use
	for name, ptr := range customPtrs {
		switch v := ptr.(type) {
		case *string:
			config.CustomFlags[name] = *v
		case *int:
			config.CustomFlags[name] = strconv.Itoa(*v)
		case *bool:
			config.CustomFlags[name] = strconv.FormatBool(*v)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
