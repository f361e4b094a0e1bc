package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/pflag"
	"github.com/transitlab/feedload"
)

func usageAndDie() {
	fmt.Println("Example usage:\n" +
		"    feedload --import <feed.zip> [--config <opts.yml>]\n" +
		"    feedload --export <feed.db>\n" +
		"    feedload --clip <feed.db> --clip-feature <feature_geojson.json>")
	os.Exit(1)
}

func main() {
	importPath := pflag.StringP("import", "i", "", "Import from a GTFS file")
	exportPath := pflag.StringP("export", "e", "", "Export a loaded database to a zip of CSV files")
	clipPath := pflag.StringP("clip", "c", "", "Clip a database")
	primaryOptions := []*string{importPath, exportPath, clipPath}

	output := pflag.StringP("out", "o", "", "Path to write output to")
	configPath := pflag.String("config", "", "YAML file with import options")
	forceMode := pflag.BoolP("force-valid", "f", false, "Whether to fix issues by deleting data during import")
	ignoreInvalidMode := pflag.Bool("ignore-invalid", false, "Ignore any issues during import")
	skipInvalidRecords := pflag.Bool("skip-invalid-records", false, "Skip records that fail to load instead of aborting")
	keepEPrefix := pflag.Bool("keep-e-prefix", false, "Do not strip a leading 'E' from integer fields")
	clipFeaturePath := pflag.String("clip-feature", "", "If --clip is specified clips to the GeoJSON feature in the file specified")

	pflag.Parse()

	primaryCount := 0
	for _, opt := range primaryOptions {
		if *opt != "" {
			primaryCount++
		}
	}
	if primaryCount > 1 {
		usageAndDie()
	}

	var err error
	if *importPath != "" {
		outputPath := outputPathOrDefault(*importPath, *output, ".zip", ".db")
		opts := &feedload.ImportOpts{}
		if *configPath != "" {
			opts, err = feedload.LoadImportOpts(*configPath)
			if err != nil {
				fmt.Printf("Error: %s\n", err)
				os.Exit(1)
			}
		}
		// Flags only ever switch options on, so a config file can set them too.
		opts.ForceValid = opts.ForceValid || *forceMode
		opts.IgnoreInvalid = opts.IgnoreInvalid || *ignoreInvalidMode
		opts.SkipInvalidRecords = opts.SkipInvalidRecords || *skipInvalidRecords
		opts.KeepEPrefix = opts.KeepEPrefix || *keepEPrefix

		var issues []string
		issues, err = feedload.Import(*importPath, outputPath, opts)
		if len(issues) > 0 {
			fmt.Printf("%d issue(s) found\n", len(issues))
		}
	} else if *exportPath != "" {
		outputPath := outputPathOrDefault(*exportPath, *output, ".db", ".zip")
		err = feedload.Export(*exportPath, outputPath, nil)
	} else if *clipPath != "" {
		if *clipFeaturePath == "" {
			usageAndDie()
		}
		var feature []byte
		feature, err = os.ReadFile(*clipFeaturePath)
		if err != nil {
			panic(err)
		}
		featureName := trimFileExt(path.Base(*clipFeaturePath))

		outputPath := outputPathOrDefault(*clipPath, *output, ".db", fmt.Sprintf("_%s.db", featureName))
		err = feedload.Clip(*clipPath, outputPath, string(feature))
	} else {
		usageAndDie()
	}

	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	} else {
		fmt.Println("All done")
	}
}

func outputPathOrDefault(inputPath string, outputPath string, suffixToTrim string, newSuffix string) string {
	if outputPath != "" {
		return outputPath
	}
	inputPath = path.Clean(inputPath)
	return strings.TrimSuffix(path.Base(inputPath), suffixToTrim) + newSuffix
}

func trimFileExt(name string) string {
	i := strings.LastIndex(name, ".")
	if i == -1 {
		return name
	} else {
		return name[:i]
	}
}
