// Package docsearch embeds the docsearch query compiler and index lifecycle
// in a Go program, talking to Elasticsearch directly instead of through the
// HTTP API.
//
//	client, err := docsearch.New(ctx,
//	    docsearch.WithElasticsearch("http://localhost:9200"),
//	    docsearch.WithBasicAuth("elastic", password),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	res, err := client.Search(ctx, "recipes", docsearch.SearchRequest{
//	    Query:       "lentil soup",
//	    Filters:     []string{"tags:vegan"},
//	    FacetFields: []string{"tags"},
//	})
//
// Search, document and rebuild errors wrap the sentinels re-exported here;
// use errors.Is to tell them apart.
package docsearch
