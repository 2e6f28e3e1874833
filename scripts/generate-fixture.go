//go:build ignore

// Package main generates a synthetic listings fixture for load testing.
// Usage: go run scripts/generate-fixture.go -docs 5000 -output testdata/listings-5k.yaml
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	numDocs = flag.Int("docs", 1000, "Number of documents to generate")
	output  = flag.String("output", "testdata/listings.yaml", "Output file")
	seed    = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var (
	adjectives = []string{"Vintage", "Electric", "Compact", "Folding", "Heavy Duty", "Wooden", "Carbon", "Portable"}
	nouns      = []string{"Bike", "Tent", "Drill", "Ladder", "Kayak", "Projector", "Camera", "Grill", "Sofa", "Lawnmower"}
	categories = []string{"sports", "outdoor", "tools", "electronics", "furniture", "garden"}
	tags       = []string{"new", "used", "weekend", "delivery", "pickup", "deposit", "family", "pro"}
	phrases    = []string{
		"barely used and well maintained",
		"available most weekends",
		"includes carrying case",
		"minor scratches on the frame",
		"perfect for beginners",
		"collect from the city centre",
	}
)

type field struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Key        bool   `yaml:"key,omitempty"`
	Searchable bool   `yaml:"searchable,omitempty"`
	Filterable bool   `yaml:"filterable,omitempty"`
	Sortable   bool   `yaml:"sortable,omitempty"`
	Facetable  bool   `yaml:"facetable,omitempty"`
}

type fixture struct {
	Index struct {
		Name   string  `yaml:"name"`
		Fields []field `yaml:"fields"`
	} `yaml:"index"`
	Documents []map[string]any `yaml:"documents"`
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	var fx fixture
	fx.Index.Name = "listings"
	fx.Index.Fields = []field{
		{Name: "id", Type: "Edm.String", Key: true, Filterable: true},
		{Name: "title", Type: "Edm.String", Searchable: true, Sortable: true},
		{Name: "description", Type: "Edm.String", Searchable: true},
		{Name: "category", Type: "Edm.String", Filterable: true, Facetable: true},
		{Name: "price", Type: "Edm.Double", Filterable: true, Sortable: true, Facetable: true},
		{Name: "tags", Type: "Collection(Edm.String)", Searchable: true, Filterable: true, Facetable: true},
		{Name: "createdAt", Type: "Edm.DateTimeOffset", Filterable: true, Sortable: true},
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < *numDocs; i++ {
		title := adjectives[rng.Intn(len(adjectives))] + " " + nouns[rng.Intn(len(nouns))]
		fx.Documents = append(fx.Documents, map[string]any{
			"id":          fmt.Sprintf("%d", i+1),
			"title":       title,
			"description": fmt.Sprintf("%s, %s", title, phrases[rng.Intn(len(phrases))]),
			"category":    categories[rng.Intn(len(categories))],
			"price":       float64(rng.Intn(2000)) + 0.5*float64(rng.Intn(2)),
			"tags":        pick(rng, tags, 1+rng.Intn(3)),
			"createdAt":   base.Add(time.Duration(rng.Intn(365*24)) * time.Hour).Format(time.RFC3339),
		})
	}

	data, err := yaml.Marshal(fx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(*output), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %d documents to %s\n", *numDocs, *output)
}

func pick(rng *rand.Rand, from []string, n int) []string {
	idx := rng.Perm(len(from))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}
