package embedding

// Tokenizer converts text into the three BERT-style model inputs the ONNX
// embedder feeds its session: input_ids, attention_mask and token_type_ids,
// each padded to maxTokens.
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// Special token IDs framing a BERT input sequence.
const (
	bertCLS = 101
	bertSEP = 102
)

// SimpleTokenizer maps whitespace-separated words to hashed token IDs. It is
// not vocabulary-accurate; it lets the embedder run without shipping a vocab
// file and keeps test inputs deterministic.
type SimpleTokenizer struct{}

// Tokenize frames the hashed word IDs with [CLS]/[SEP] and pads every slice
// to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	words := SplitWords(text)
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = bertCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range words {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = int64(HashString(word) % 30000)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = bertSEP
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// SplitWords returns the non-empty words of text, split on spaces, tabs and
// newlines. All-whitespace input yields nil.
func SplitWords(text string) []string {
	var words []string
	start := -1
	for i, r := range text {
		switch r {
		case ' ', '\n', '\t':
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// HashString folds s into a non-negative integer. It backs both the hashed
// token IDs above and the mock embedder's deterministic vectors.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
