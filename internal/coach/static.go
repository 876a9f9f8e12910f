package coach

import "context"

// Static is a coach that never calls the API and always answers with the
// trigger-derived fallback text. It backs deployments without a Gemini key.
type Static struct{}

// Generate returns the fallback feedback for the request.
func (Static) Generate(_ context.Context, req Request) Feedback {
	return FallbackFeedback(req)
}
