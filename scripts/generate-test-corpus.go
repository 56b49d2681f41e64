//go:build ignore

// Package main generates a synthetic document corpus for benchmarking
// ingest and retrieval.
// Usage: go run scripts/generate-test-corpus.go -docs 200 -output data
//
// It writes plain text documents under <output>/raw plus a matching
// sources.json manifest, so `minirag ingest` can run against it directly.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numDocs   = flag.Int("docs", 200, "Number of documents to generate")
	outputDir = flag.String("output", "data", "Output directory (raw/ and sources.json go here)")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Topic vocabulary for workplace safety style documents.
var topics = []string{
	"lockout tagout", "machine guarding", "fall protection", "confined spaces",
	"respiratory protection", "hearing conservation", "electrical safety",
	"hazard communication", "forklift operation", "emergency egress",
	"fire prevention", "ladder safety", "crane signaling", "welding fumes",
	"chemical storage",
}

var subjects = []string{
	"authorized employees", "the competent person", "each operator",
	"maintenance personnel", "the employer", "affected workers",
	"the site supervisor", "contract employees",
}

var requirements = []string{
	"must complete documented training before the first assignment",
	"shall inspect the equipment at the start of every shift",
	"must isolate all hazardous energy sources before servicing begins",
	"shall wear the personal protective equipment listed in the program",
	"must report damaged devices to the supervisor immediately",
	"shall verify that guards are affixed and functional",
	"must maintain three points of contact at all times",
	"shall test the atmosphere before entry and continuously during work",
	"must keep exit routes unobstructed and clearly marked",
	"shall review the written program at least annually",
}

var elaborations = []string{
	"The written program identifies the specific procedures that apply to each machine or work area.",
	"Records of each periodic inspection are retained for review by the safety committee.",
	"Exceptions require written approval and an equivalent level of protection.",
	"Retraining is required whenever a change in equipment or procedure introduces a new hazard.",
	"Failure to follow these procedures is grounds for removal from the task.",
	"A copy of this section is posted at the affected workstation.",
}

type manifestEntry struct {
	FileName string `json:"file_name"`
	Title    string `json:"title"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	rawDir := filepath.Join(*outputDir, "raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	entries := make([]manifestEntry, 0, *numDocs)
	for i := 0; i < *numDocs; i++ {
		topic := topics[rng.Intn(len(topics))]
		name := fmt.Sprintf("doc-%04d.txt", i)

		if err := os.WriteFile(filepath.Join(rawDir, name), []byte(document(rng, topic)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}

		entries = append(entries, manifestEntry{
			FileName: name,
			Title:    fmt.Sprintf("%s Program %d", title(topic), i),
		})
	}

	manifest, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal manifest: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(filepath.Join(*outputDir, "sources.json"), manifest, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write manifest: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("generated %d documents in %s\n", *numDocs, rawDir)
}

// document produces several paragraphs of procedure text about a topic.
func document(rng *rand.Rand, topic string) string {
	paragraphs := 3 + rng.Intn(6)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s Program\n\n", title(topic)))
	for p := 0; p < paragraphs; p++ {
		sentences := 3 + rng.Intn(4)
		for s := 0; s < sentences; s++ {
			subject := subjects[rng.Intn(len(subjects))]
			req := requirements[rng.Intn(len(requirements))]
			b.WriteString(fmt.Sprintf("For %s, %s %s. ", topic, subject, req))
			if rng.Intn(3) == 0 {
				b.WriteString(elaborations[rng.Intn(len(elaborations))])
				b.WriteString(" ")
			}
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// title capitalizes each word of a topic for use as a document title.
func title(topic string) string {
	words := strings.Fields(topic)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
