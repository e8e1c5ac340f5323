package nlu

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"github.com/mkrab/famulus/internal/textutil"
)

// artifact is the JSON export of the trained TF-IDF vectorizer plus
// linear classifier. The training job (external to this runtime) writes
// it; this side only consumes it.
type artifact struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Classes      []string       `json:"classes"`
	Coefficients [][]float64    `json:"coefficients"`
	Intercepts   []float64      `json:"intercepts"`
	Probability  bool           `json:"probability"`
}

func (a *artifact) validate(cfg *IntentConfig) error {
	if len(a.Vocabulary) == 0 || len(a.Classes) == 0 {
		return fmt.Errorf("artifact missing vocabulary or classes")
	}
	if len(a.IDF) != len(a.Vocabulary) {
		return fmt.Errorf("idf length %d does not match vocabulary size %d", len(a.IDF), len(a.Vocabulary))
	}
	for term, idx := range a.Vocabulary {
		if idx < 0 || idx >= len(a.IDF) {
			return fmt.Errorf("vocabulary index %d for %q is out of range", idx, term)
		}
	}
	wantRows := len(a.Classes)
	if len(a.Classes) == 2 {
		wantRows = 1
	}
	if len(a.Coefficients) != wantRows || len(a.Intercepts) != wantRows {
		return fmt.Errorf("coefficient shape %dx%d does not match %d classes",
			len(a.Coefficients), len(a.Intercepts), len(a.Classes))
	}
	for row, coefs := range a.Coefficients {
		if len(coefs) != len(a.Vocabulary) {
			return fmt.Errorf("coefficient row %d width %d does not match vocabulary size %d",
				row, len(coefs), len(a.Vocabulary))
		}
	}
	for _, class := range a.Classes {
		if !cfg.Has(class) {
			return fmt.Errorf("artifact class %q is not a configured intent", class)
		}
	}
	return nil
}

// Classifier wraps the serialized model. The artifact is lazy-loaded on
// first predict; a missing file permanently disables the classifier.
type Classifier struct {
	path    string
	intents *IntentConfig

	once  sync.Once
	model *artifact
}

// NewClassifier creates a classifier over the artifact at path. An empty
// path means no classifier stage.
func NewClassifier(path string, intents *IntentConfig) *Classifier {
	return &Classifier{path: path, intents: intents}
}

func (c *Classifier) load() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("classifier: artifact unreadable", "path", c.path, "error", err)
		}
		return
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		slog.Warn("classifier: artifact malformed", "path", c.path, "error", err)
		return
	}
	if err := a.validate(c.intents); err != nil {
		slog.Warn("classifier: artifact rejected", "path", c.path, "error", err)
		return
	}
	c.model = &a
	slog.Info("classifier: artifact loaded", "path", c.path, "classes", len(a.Classes))
}

// Predict returns the top intent and its confidence. ok is false when no
// artifact is available or the message has no vocabulary overlap.
// Confidence is the top class probability when the artifact exposes
// probabilities, else 0.0.
func (c *Classifier) Predict(text string) (intent string, confidence float64, ok bool) {
	c.once.Do(c.load)
	if c.model == nil {
		return "", 0, false
	}
	a := c.model

	// TF-IDF encode: raw term counts scaled by idf, then L2-normalized.
	vec := make(map[int]float64)
	for _, tok := range textutil.Tokenize(text) {
		if idx, found := a.Vocabulary[tok]; found {
			vec[idx] += a.IDF[idx]
		}
	}
	if len(vec) == 0 {
		return "", 0, false
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	for idx := range vec {
		vec[idx] /= norm
	}

	scores := make([]float64, len(a.Coefficients))
	for row, coefs := range a.Coefficients {
		s := a.Intercepts[row]
		for idx, v := range vec {
			s += coefs[idx] * v
		}
		scores[row] = s
	}

	// Binary models carry one decision row: positive means the second class.
	if len(a.Classes) == 2 {
		prob := 1 / (1 + math.Exp(-scores[0]))
		if prob >= 0.5 {
			return a.Classes[1], maybeProb(a, prob), true
		}
		return a.Classes[0], maybeProb(a, 1-prob), true
	}

	best, bestScore := 0, math.Inf(-1)
	var expSum float64
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	for i, s := range scores {
		expSum += math.Exp(s - maxScore)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	prob := math.Exp(bestScore-maxScore) / expSum
	return a.Classes[best], maybeProb(a, prob), true
}

func maybeProb(a *artifact, prob float64) float64 {
	if a.Probability {
		return prob
	}
	return 0.0
}
