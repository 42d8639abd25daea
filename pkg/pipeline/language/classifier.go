// Package language classifies document text into the two-valued tag that
// drives output naming: "EN" for English, "NON" for everything else,
// including text too short to classify reliably.
package language

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// Tag is the language segment embedded in output filenames.
type Tag string

const (
	// TagEnglish marks documents whose sampled text is detected as English.
	TagEnglish Tag = "EN"
	// TagNonEnglish marks everything else: other languages, empty or
	// near-empty samples, and detection failures.
	TagNonEnglish Tag = "NON"
)

const (
	// minSampleChars is the minimum amount of text required before detection
	// is attempted. Shorter samples (scanned documents, cover pages) are
	// tagged TagNonEnglish without consulting the detector.
	minSampleChars = 100
	// maxSampleChars caps the text handed to the detector. Detection
	// accuracy plateaus well below this; more text only costs time.
	maxSampleChars = 1000
)

// Classifier maps a text sample to a Tag. Implementations must be safe for
// concurrent use by multiple workers.
type Classifier interface {
	Classify(sample string) Tag
}

// linguaClassifier implements Classifier on top of the lingua-go statistical
// detector.
type linguaClassifier struct {
	detector lingua.LanguageDetector
	logger   *slog.Logger
}

// NewLinguaClassifier builds a Classifier backed by lingua-go with all
// supported languages loaded. Construction is expensive (the detector loads
// its language models); build one per run and share it across workers.
func NewLinguaClassifier(handler slog.Handler) Classifier {
	logger := slog.New(handler).With(slog.String("component", "language"))
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()
	return &linguaClassifier{detector: detector, logger: logger}
}

// Classify implements the Classifier interface.
func (c *linguaClassifier) Classify(sample string) Tag {
	sample = strings.TrimSpace(sample)
	if len(sample) < minSampleChars {
		c.logger.Debug("Sample too short for detection, tagging non-English", slog.Int("chars", len(sample)))
		return TagNonEnglish
	}
	if len(sample) > maxSampleChars {
		sample = truncateAtRune(sample, maxSampleChars)
	}

	detected, ok := c.detector.DetectLanguageOf(sample)
	if !ok {
		c.logger.Debug("Language detection inconclusive, tagging non-English")
		return TagNonEnglish
	}
	if detected == lingua.English {
		return TagEnglish
	}
	c.logger.Debug("Detected non-English language", slog.String("language", detected.String()))
	return TagNonEnglish
}

// truncateAtRune cuts s to at most max bytes without splitting a multi-byte
// rune at the cut point.
func truncateAtRune(s string, max int) string {
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
