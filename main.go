// smishgrade grades smishing URL datasets offline with a weighted
// heuristic scorer. It prompts for newline-delimited URL files, each
// labelled with its ground truth, appends one CSV row per URL and keeps
// a crash-durable WHOIS domain-age cache so re-runs never repeat a
// lookup.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"smishgrade/agecache"
	"smishgrade/grading"
	"smishgrade/report"
	"smishgrade/results"
)

func main() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := grading.LoadConfig()

	resultsFile := flag.String("results", cfg.ResultsFile, "CSV file graded URLs are appended to")
	cacheFile := flag.String("cache", cfg.CacheFile, "domain age cache file")
	reportFile := flag.String("report", "", "compute performance metrics from the results CSV, write them to this .xlsx file and exit")
	flag.Parse()

	if *reportFile != "" {
		if err := report.Run(*resultsFile, *reportFile); err != nil {
			log.Fatal().Err(err).Msg("report failed")
		}
		return
	}

	cache := agecache.New(*cacheFile, agecache.WhoisCreationDate, agecache.NewPacer(cfg.LookupDelay))
	cache.Load()

	// The cache is the sole durability barrier: it must reach disk on
	// every exit path, normal or not.
	defer cache.Save()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("unexpected error during batch processing")
			cache.Save()
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warn().Msg("interrupted, saving cache before exit")
		cache.Save()
		os.Exit(1)
	}()

	writer, err := results.Open(*resultsFile)
	if err != nil {
		log.Error().Err(err).Str("file", *resultsFile).Msg("cannot open results file")
		return
	}
	defer writer.Close()

	log.Info().Msg("SmishGrade heuristic analyzer")
	run(cfg, cache, writer)
	log.Info().Msg("analysis complete, exiting")
}

// run is the interactive batch loop: one URL file plus its ground truth
// per iteration, until the user quits. The cache is checkpointed after
// every file.
func run(cfg grading.Config, cache *agecache.Cache, writer *results.Writer) {
	ctx := context.Background()
	age := func(domain string) int { return cache.Lookup(ctx, domain) }
	stdin := bufio.NewScanner(os.Stdin)

	for {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("Enter the URL file to analyze (for example, 'tranco.txt'), or 'q' to quit")
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		name := strings.TrimSpace(stdin.Text())
		if strings.EqualFold(name, "q") {
			return
		}

		fmt.Println("What is the ground truth for this file ('malicious' or 'benign')?")
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}
		truth := strings.ToLower(strings.TrimSpace(stdin.Text()))
		if truth != "malicious" && truth != "benign" {
			fmt.Println("Invalid entry. Please type 'malicious' or 'benign'.")
			continue
		}

		gradeFile(cfg, name, truth, age, writer)
		cache.Save()
	}
}

// gradeFile scores every URL in one input file. A missing or unreadable
// file is logged and skipped; the loop moves on to the next prompt.
func gradeFile(cfg grading.Config, name, truth string, age grading.AgeFunc, writer *results.Writer) {
	data, err := os.ReadFile(name)
	if err != nil {
		log.Error().Err(err).Str("file", name).Msg("could not read URL file, skipping")
		return
	}

	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			urls = append(urls, line)
		}
	}
	log.Info().Int("urls", len(urls)).Str("file", name).Msg("starting analysis")

	for i, u := range urls {
		log.Info().
			Int("n", i+1).
			Int("of", len(urls)).
			Str("url", truncate(u, 70)).
			Msg("grading")
		res := cfg.Evaluate(u, age)
		if err := writer.Write(truth, res); err != nil {
			log.Error().Err(err).Str("url", u).Msg("could not record result")
		}
	}
	log.Info().Str("file", name).Msg("finished file")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
