package sparse

// Payload is the on-disk shape of sparse_index.json: the tokenized
// corpus plus a redundant chunk count used to sanity-check it against
// chunks.json on load.
type Payload struct {
	TokenizedCorpus [][]string `json:"tokenized_corpus"`
	ChunkCount      int        `json:"chunk_count"`
}

// BuildPayload tokenizes the given chunk contents into a Payload ready
// for persistence.
func BuildPayload(contents []string) Payload {
	corpus := make([][]string, len(contents))
	for i, c := range contents {
		corpus[i] = Tokenize(c)
	}
	return Payload{TokenizedCorpus: corpus, ChunkCount: len(contents)}
}
