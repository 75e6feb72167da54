package scheme

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Built-in tiktoken scheme identifiers.
const (
	R50KBase   = "r50k_base"
	P50KBase   = "p50k_base"
	P50KEdit   = "p50k_edit"
	CL100KBase = "cl100k_base"
	O200KBase  = "o200k_base"
)

// Defaults is the scheme order used when none is configured.
func Defaults() []string {
	return []string{CL100KBase, P50KBase, P50KEdit, R50KBase, O200KBase}
}

// RanksSource selects where tiktoken BPE rank files come from.
type RanksSource string

const (
	// RanksOffline uses the rank files embedded in tiktoken-go-loader.
	RanksOffline RanksSource = "offline"
	// RanksRemote downloads rank files and caches them under TIKTOKEN_CACHE_DIR.
	RanksRemote RanksSource = "remote"
)

// ParseRanksSource accepts "" as offline.
func ParseRanksSource(s string) (RanksSource, error) {
	switch RanksSource(s) {
	case "", RanksOffline:
		return RanksOffline, nil
	case RanksRemote:
		return RanksRemote, nil
	default:
		return "", fmt.Errorf("invalid ranks source %q (want offline or remote)", s)
	}
}

// tiktoken-go keeps its loader in a package global.
var loaderMu sync.Mutex

func useRanksSource(src RanksSource) {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	if src == RanksRemote {
		tiktoken.SetBpeLoader(tiktoken.NewDefaultBpeLoader())
		return
	}
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// tiktokenScheme uses ordinary encoding: special token text is encoded as
// plain text rather than mapped to special ids.
type tiktokenScheme struct {
	enc *tiktoken.Tiktoken
}

func (s tiktokenScheme) Encode(text string) ([]int, error) {
	return s.enc.EncodeOrdinary(text), nil
}

func (s tiktokenScheme) Decode(ids []int) (string, error) {
	return s.enc.Decode(ids), nil
}

func loadTiktoken(name string) (Scheme, error) {
	loaderMu.Lock()
	defer loaderMu.Unlock()
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	return tiktokenScheme{enc: enc}, nil
}

// NewDefaultRegistry returns a registry holding the built-in tiktoken schemes.
// Encodings load lazily on first use.
func NewDefaultRegistry(src RanksSource) *Registry {
	useRanksSource(src)
	r := NewRegistry()
	for _, name := range []string{R50KBase, P50KBase, P50KEdit, CL100KBase, O200KBase} {
		r.schemes[name] = newLazy(name, func() (Scheme, error) {
			return loadTiktoken(name)
		})
	}
	return r
}
