// Package facetdex embeds the faceted search engine in a Go program.
//
// The client reads a raw record corpus from a directory (or any fs.FS), flattens it into
// search documents per data source, and answers faceted queries through a background worker.
// A Redis cache can share flattened payloads between replicas.
//
//	client, _ := facetdex.New(ctx, facetdex.WithDataDir("./data"))
//	defer client.Close()
//
//	res, _ := client.Search(ctx, facetdex.Request{
//	    DataSource: "films",
//	    Query:      "amour",
//	    Filters:    map[string][]string{"genre": {"Drama"}},
//	    Sort:       "releaseYear_desc",
//	})
//	for _, doc := range res.Items {
//	    fmt.Println(doc.ID())
//	}
//
//	chart, _ := client.Insights(ctx, facetdex.InsightsRequest{
//	    Request: facetdex.Request{DataSource: "films"},
//	    Facet:   "genre",
//	    GroupBy: "directorGender",
//	})
//	fmt.Println(chart.Label)
package facetdex
