package scheme

import (
	"fmt"
	"slices"
	"strings"
)

// Model describes an OpenAI model and the scheme it tokenizes with.
type Model struct {
	Name             string
	Scheme           string
	MaxContextLength int
}

var models = []Model{
	// chat
	{"gpt-4", CL100KBase, 8192},
	{"gpt-4o", O200KBase, 128000},
	{"gpt-4o-mini", O200KBase, 128000},
	{"gpt-4-32k", CL100KBase, 32768},
	{"gpt-4-turbo", CL100KBase, 128000},
	{"gpt-3.5-turbo", CL100KBase, 16385},
	{"gpt-3.5-turbo-16k", CL100KBase, 16385},

	// text
	{"text-davinci-003", P50KBase, 4097},
	{"text-davinci-002", P50KBase, 4097},
	{"text-davinci-001", R50KBase, 2049},
	{"text-curie-001", R50KBase, 2049},
	{"text-babbage-001", R50KBase, 2049},
	{"text-ada-001", R50KBase, 2049},
	{"davinci", R50KBase, 2049},
	{"curie", R50KBase, 2049},
	{"babbage", R50KBase, 2049},
	{"ada", R50KBase, 2049},

	// code
	{"code-davinci-002", P50KBase, 8001},
	{"code-davinci-001", P50KBase, 8001},
	{"code-cushman-002", P50KBase, 2048},
	{"code-cushman-001", P50KBase, 2048},
	{"davinci-codex", P50KBase, 4096},
	{"cushman-codex", P50KBase, 2048},

	// edit
	{"text-davinci-edit-001", P50KEdit, 3000},
	{"code-davinci-edit-001", P50KEdit, 3000},

	// embeddings
	{"text-embedding-ada-002", CL100KBase, 8191},
	{"text-embedding-3-small", CL100KBase, 8191},
	{"text-embedding-3-large", CL100KBase, 8191},
	{"text-similarity-davinci-001", R50KBase, 2046},
	{"text-similarity-curie-001", R50KBase, 2046},
	{"text-similarity-babbage-001", R50KBase, 2046},
	{"text-similarity-ada-001", R50KBase, 2046},
	{"text-search-davinci-doc-001", R50KBase, 2046},
	{"text-search-curie-doc-001", R50KBase, 2046},
	{"text-search-babbage-doc-001", R50KBase, 2046},
	{"text-search-ada-doc-001", R50KBase, 2046},
	{"code-search-babbage-code-001", R50KBase, 2046},
	{"code-search-ada-code-001", R50KBase, 2046},
}

var modelsByName = func() map[string]Model {
	m := make(map[string]Model, len(models))
	for _, model := range models {
		m[model.Name] = model
	}
	return m
}()

// Versioned model names ("gpt-4-0613", "gpt-4o-2024-05-13") resolve by
// prefix. Longer prefixes are listed first.
var modelPrefixes = []string{"gpt-4o", "gpt-4-32k", "gpt-4", "gpt-3.5-turbo-16k", "gpt-3.5-turbo"}

// LookupModel finds a model by exact name, then by known version prefix.
func LookupModel(name string) (Model, error) {
	if m, ok := modelsByName[name]; ok {
		return m, nil
	}
	for _, prefix := range modelPrefixes {
		if strings.HasPrefix(name, prefix) {
			return modelsByName[prefix], nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}

// SchemeForModel returns the scheme identifier a model tokenizes with.
func SchemeForModel(name string) (string, error) {
	m, err := LookupModel(name)
	if err != nil {
		return "", err
	}
	return m.Scheme, nil
}

// Models lists every known model in declaration order.
func Models() []Model {
	return slices.Clone(models)
}
