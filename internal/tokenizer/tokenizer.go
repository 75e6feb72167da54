package tokenizer

// Tokenizer is the encode/decode pair every fixture scheme exposes.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
}
