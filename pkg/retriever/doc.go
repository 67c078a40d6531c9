// Package retriever provides a Go client for the retriever HTTP API.
//
//	client := retriever.New("http://localhost:8080",
//	    retriever.WithAPIKey("dev-key"),
//	)
//	resp, _ := client.Retrieve(ctx, retriever.RetrieveRequest{
//	    Query: "Ross 308 weight at 21 days",
//	    K:     5,
//	})
//	for _, r := range resp.Results {
//	    fmt.Println(r.ID, r.Score, r.Text)
//	}
//
// Failed requests return an *APIError; well-known conditions also match the
// package sentinel errors via errors.Is.
package retriever
