package retrieval

import "strings"

const defaultChunkSize = 1200

// ChunkText splits a document into passages for indexing. Paragraphs are the
// unit of splitting; consecutive paragraphs are merged until maxLen is
// reached, and a single oversized paragraph is split hard. maxLen <= 0 uses
// the default.
func ChunkText(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = defaultChunkSize
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		for len(para) > maxLen {
			flush()
			cut := strings.LastIndexByte(para[:maxLen], '\n')
			if cut <= 0 {
				cut = maxLen
			}
			chunks = append(chunks, strings.TrimSpace(para[:cut]))
			para = strings.TrimSpace(para[cut:])
		}

		if current.Len() > 0 && current.Len()+len(para)+2 > maxLen {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return chunks
}
