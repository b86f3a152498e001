package testutil

// DefaultStepToken is used when a scenario does not pin its own token.
const DefaultStepToken = "test-step-default"

// FixedStepGenerator stamps every flush with the same token.
//
// breakage.FixedGenerator walks a list of tokens; this one never changes,
// which keeps golden traces stable when a scenario adds or removes flushes.
//
// Thread-safety: FixedStepGenerator is immutable and safe for concurrent use.
type FixedStepGenerator struct {
	token string
}

// NewFixedStepGenerator creates a generator for token, or DefaultStepToken
// if token is empty.
func NewFixedStepGenerator(token string) *FixedStepGenerator {
	if token == "" {
		token = DefaultStepToken
	}
	return &FixedStepGenerator{token: token}
}

// Generate implements breakage.StepTokenGenerator.
func (g *FixedStepGenerator) Generate() string {
	return g.token
}
