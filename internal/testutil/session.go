package testutil

// FixedSessionGenerator returns the same session id every time.
//
// Unlike engine.FixedGenerator, which returns ids in sequence and panics
// when exhausted, this generator suits tests that run an unknown number of
// passes.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator returning id. An empty id
// becomes "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
