package search

import (
	"context"
	"fmt"
	"testing"
)

func benchService(b *testing.B, n int) *Service {
	b.Helper()
	ctx := context.Background()
	svc, err := NewService(WithLogger(quietLogger()))
	if err != nil {
		b.Fatal(err)
	}
	if err := svc.Startup(ctx); err != nil {
		b.Fatal(err)
	}
	if _, err := svc.CreateIndexIfNotExists(ctx, listingsDef()); err != nil {
		b.Fatal(err)
	}
	titles := []string{"Mountain Bike", "Road Bike", "Camping Tent", "Power Drill", "Kayak Paddle"}
	categories := []string{"Sports", "Outdoor", "Tools"}
	for i := 0; i < n; i++ {
		doc := map[string]any{
			"id":       i,
			"title":    fmt.Sprintf("%s %d", titles[i%len(titles)], i),
			"category": categories[i%len(categories)],
			"price":    float64(i % 1000),
			"tags":     []any{"bike", fmt.Sprintf("t%d", i%7)},
		}
		if err := svc.IndexDocument(ctx, "listings", doc); err != nil {
			b.Fatal(err)
		}
	}
	return svc
}

func BenchmarkSearch(b *testing.B) {
	svc := benchService(b, 500)
	ctx := context.Background()

	cases := []struct {
		name string
		text string
		opts *Options
	}{
		{"term", "bike", nil},
		{"fuzzy", "bikr~1", &Options{QueryType: "full"}},
		{"filter_sort", "bike", &Options{Filter: "price lt 500 and category eq 'Sports'", OrderBy: []string{"price desc"}}},
		{"facets", "*", &Options{Facets: []string{"category", "tags,count:3"}}},
	}

	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := svc.Search(ctx, "listings", tc.text, tc.opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
