package testutil

// FixedRunGenerator returns the same run token every time so golden
// snapshots and stored runs are reproducible.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunGenerator struct {
	token string
}

// NewFixedRunGenerator creates a generator for token. An empty token
// becomes "test-run-default".
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedRunGenerator{token: token}
}

// Generate returns the fixed token.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}
