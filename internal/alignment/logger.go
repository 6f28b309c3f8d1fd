// Package alignment persists per-utterance timing artifacts: a JSON
// alignment record for each finished utterance and a plain-text copy of
// the spoken output, plus "latest" copies for quick inspection.
package alignment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/transcript"
)

// CharacterAlignment is one character's timing inside an utterance record.
type CharacterAlignment struct {
	Index      int      `json:"index"`
	Char       string   `json:"char"`
	StartMs    *float64 `json:"start_ms"`
	DurationMs *float64 `json:"duration_ms"`
}

// Record is the saved alignment for one utterance.
type Record struct {
	Timestamp       string               `json:"timestamp"`
	Text            string               `json:"text"`
	TextLength      int                  `json:"text_length"`
	TotalDurationMs float64              `json:"total_duration_ms"`
	CharCount       int                  `json:"char_count"`
	Characters      []CharacterAlignment `json:"characters"`
}

// Logger writes alignment and output files under a base directory.
type Logger struct {
	alignmentDir string
	outputDir    string
	log          zerolog.Logger
	now          func() time.Time
}

// NewLogger creates the alignment and output directories under baseDir.
func NewLogger(baseDir string, logger zerolog.Logger) (*Logger, error) {
	l := &Logger{
		alignmentDir: filepath.Join(baseDir, "alignment"),
		outputDir:    filepath.Join(baseDir, "outputs"),
		log:          logger.With().Str("component", "alignment").Logger(),
		now:          time.Now,
	}

	for _, dir := range []string{l.alignmentDir, l.outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create alignment directory %s: %w", dir, err)
		}
	}
	return l, nil
}

// SaveUtterance writes the alignment record and raw text for a finished
// utterance. Implements transcript.AlignmentSink.
func (l *Logger) SaveUtterance(units []transcript.SpeechUnit) error {
	if len(units) == 0 {
		return nil
	}

	stamp := l.now().UTC().Format("20060102_150405.000000")
	stamp = strings.ReplaceAll(stamp, ".", "_")

	record := buildRecord(stamp, units)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alignment: %w", err)
	}

	timestamped := filepath.Join(l.alignmentDir, fmt.Sprintf("alignment_%s.json", stamp))
	if err := os.WriteFile(timestamped, data, 0o644); err != nil {
		return fmt.Errorf("write alignment file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.alignmentDir, "alignment.txt"), data, 0o644); err != nil {
		return fmt.Errorf("write latest alignment: %w", err)
	}

	outFile := filepath.Join(l.outputDir, fmt.Sprintf("output_%s.txt", stamp))
	if err := os.WriteFile(outFile, []byte(record.Text), 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(l.outputDir, "output.txt"), []byte(record.Text), 0o644); err != nil {
		return fmt.Errorf("write latest output: %w", err)
	}

	l.log.Debug().Str("file", timestamped).Int("chars", record.CharCount).Msg("saved alignment")
	return nil
}

// LatestAlignment reads back the most recent alignment record, or nil when
// none has been written yet.
func (l *Logger) LatestAlignment() (*Record, error) {
	data, err := os.ReadFile(filepath.Join(l.alignmentDir, "alignment.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read latest alignment: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parse latest alignment: %w", err)
	}
	return &record, nil
}

// LatestOutput reads back the most recent utterance text, empty when none
// has been written yet.
func (l *Logger) LatestOutput() (string, error) {
	data, err := os.ReadFile(filepath.Join(l.outputDir, "output.txt"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read latest output: %w", err)
	}
	return string(data), nil
}

func buildRecord(stamp string, units []transcript.SpeechUnit) Record {
	var text strings.Builder
	chars := make([]CharacterAlignment, 0, len(units))
	var totalMs float64

	for _, u := range units {
		text.WriteString(u.Text)

		ca := CharacterAlignment{Index: u.Seq, Char: u.Text}
		if u.Timed() {
			startMs := *u.Start * 1000
			durationMs := (*u.End - *u.Start) * 1000
			ca.StartMs = &startMs
			ca.DurationMs = &durationMs
			if endMs := *u.End * 1000; endMs > totalMs {
				totalMs = endMs
			}
		}
		chars = append(chars, ca)
	}

	return Record{
		Timestamp:       stamp,
		Text:            text.String(),
		TextLength:      utf8.RuneCountInString(text.String()),
		TotalDurationMs: totalMs,
		CharCount:       len(chars),
		Characters:      chars,
	}
}
