// Package ideasearch embeds the hybrid idea search pipeline in a Go program,
// backed by Valkey or Redis with the search module, or by Postgres with pgvector.
//
// Ranking combines BM25+ over the candidate set, vector similarity from the
// configured embedding providers and reciprocal rank fusion. A local hashing
// embedder is always the last link of the provider chain, so searches keep a
// vector signal when every remote provider is down.
//
//	client, _ := ideasearch.New(ctx,
//	    ideasearch.WithValkey("localhost:6379", ""),
//	    ideasearch.WithEmbedder("openai", myEmbedder, 1536),
//	)
//	defer client.Close()
//
//	f, _ := os.Open("ideas.csv")
//	_, summary, _ := client.IndexCSV(ctx, f)
//
//	page, _ := client.Search(ctx, ideasearch.Query{
//	    Text:    "blockchain payments",
//	    Filters: ideasearch.Filters{TechStack: []string{"Go"}},
//	    Mode:    ideasearch.ModeBoost,
//	})
package ideasearch
