package detection

// ClassificationResult is the normalized verdict of a Classifier for a single
// candidate.
type ClassificationResult struct {
	IsSecret bool   `json:"is_secret"`
	Reason   string `json:"reason"`
}

// NotSecret builds a negative verdict carrying a diagnostic reason. Classifier
// failures degrade to this rather than surfacing an error.
func NotSecret(reason string) ClassificationResult {
	return ClassificationResult{IsSecret: false, Reason: reason}
}
