package api

// FixtureRequest asks for the fixture record of one input.
type FixtureRequest struct {
	Input     *string  `json:"input"`
	Schemes   []string `json:"schemes,omitempty"`
	MaxTokens *int     `json:"max_tokens,omitempty"`
}

type FixtureRecord struct {
	Scheme          string `json:"scheme"`
	Input           string `json:"input"`
	Output          []int  `json:"output"`
	OutputMaxTokens []int  `json:"output_max_tokens"`
	// Row is the record as it appears in a fixture CSV.
	Row []string `json:"row"`
}

type FixtureResponse struct {
	MaxTokens int             `json:"max_tokens"`
	Records   []FixtureRecord `json:"records"`
}

type SchemesResponse struct {
	Schemes []string `json:"schemes"`
}

type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
