//go:build ignore

// Package main generates a synthetic writing-tool project for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files per tool")
	outputDir = flag.String("output", "testdata/bench", "Project directory to create")
	tools     = flag.String("tools", "notes,plot,characters", "Comma-separated tool names")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var markdownTemplate = `---
title: %s
tags: [%s, %s]
date: %s
---

# %s

The %s %s waited by the %s while the %s %s.

## Notes

- %s %s near the %s
- %s remembers the %s
`

var (
	names    = []string{"Mara", "Tobin", "Ilse", "Corvin", "Adaeze", "Rook", "Sela", "Hale"}
	nouns    = []string{"lantern", "harbor", "archive", "orchard", "tower", "ferry", "ledger", "bell"}
	adjs     = []string{"quiet", "ruined", "gilded", "salt-worn", "hidden", "northern", "borrowed"}
	verbs    = []string{"burned", "sank", "opened", "rang", "vanished", "returned", "fell silent"}
	settings = []string{"market", "chapel", "lighthouse", "mill", "courtyard", "border post"}
)

func pick(r *rand.Rand, pool []string) string {
	return pool[r.Intn(len(pool))]
}

func main() {
	flag.Parse()
	r := rand.New(rand.NewSource(*seed))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, tool := range strings.Split(*tools, ",") {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		dir := filepath.Join(*outputDir, "content", tool)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", dir, err)
			os.Exit(1)
		}

		for i := 0; i < *numFiles; i++ {
			var (
				name string
				body []byte
			)
			title := fmt.Sprintf("%s %s %d", pick(r, adjs), pick(r, nouns), i)
			date := start.Add(time.Duration(i) * time.Hour).Format("2006-01-02")

			switch i % 5 {
			case 0, 1, 2:
				name = fmt.Sprintf("%s_%04d.md", tool, i)
				who := pick(r, names)
				body = []byte(fmt.Sprintf(markdownTemplate,
					title, tool, pick(r, nouns), date, title,
					pick(r, adjs), who, pick(r, settings), pick(r, nouns), pick(r, verbs),
					who, pick(r, verbs), pick(r, settings),
					pick(r, names), pick(r, nouns)))
			case 3:
				name = fmt.Sprintf("%s_%04d.txt", tool, i)
				body = []byte(fmt.Sprintf("%s\n%s met %s at the %s.\n",
					title, pick(r, names), pick(r, names), pick(r, settings)))
			default:
				name = fmt.Sprintf("%s_%04d.json", tool, i)
				doc := map[string]any{
					"title":   title,
					"content": fmt.Sprintf("The %s %s before dawn.", pick(r, nouns), pick(r, verbs)),
					"tags":    []string{tool, pick(r, adjs)},
					"date":    date,
				}
				var err error
				if body, err = json.MarshalIndent(doc, "", "  "); err != nil {
					fmt.Fprintf(os.Stderr, "Error encoding %s: %v\n", name, err)
					continue
				}
			}

			if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			}
		}
		fmt.Printf("Generated %d files for %s\n", *numFiles, tool)
	}
}
