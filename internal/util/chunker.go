package util

import "strings"

// ChunkWords splits text into windows of size words, each starting overlap
// words before the previous window ended. The last window always ends at the
// final word, so for n > size words it yields ceil((n-overlap)/(size-overlap))
// chunks; n <= size yields one chunk and empty text none.
func ChunkWords(text string, size, overlap int) []string {
	if size <= 0 {
		size = 500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := size - overlap
	out := make([]string, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}
