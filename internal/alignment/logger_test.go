package alignment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmaged/voxline/internal/transcript"
)

func floatPtr(f float64) *float64 { return &f }

func TestLogger_SaveAndReadBack(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.now = func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	units := []transcript.SpeechUnit{
		{Seq: 0, Text: "h", Start: floatPtr(0.0), End: floatPtr(0.1)},
		{Seq: 1, Text: "i", Start: floatPtr(0.1), End: floatPtr(0.25)},
		{Seq: 2, Text: "!"},
	}

	if err := l.SaveUtterance(units); err != nil {
		t.Fatalf("save utterance: %v", err)
	}

	record, err := l.LatestAlignment()
	if err != nil {
		t.Fatalf("latest alignment: %v", err)
	}
	if record == nil {
		t.Fatal("expected a record")
	}

	if record.Text != "hi!" {
		t.Errorf("expected text 'hi!', got %q", record.Text)
	}
	if record.TextLength != 3 || record.CharCount != 3 {
		t.Errorf("expected 3 chars, got length=%d count=%d", record.TextLength, record.CharCount)
	}
	if record.TotalDurationMs != 250 {
		t.Errorf("expected total duration 250ms, got %v", record.TotalDurationMs)
	}

	if record.Characters[1].StartMs == nil || *record.Characters[1].StartMs != 100 {
		t.Errorf("char 1 start wrong: %+v", record.Characters[1])
	}
	if record.Characters[1].DurationMs == nil || *record.Characters[1].DurationMs != 150 {
		t.Errorf("char 1 duration wrong: %+v", record.Characters[1])
	}
	if record.Characters[2].StartMs != nil {
		t.Errorf("untimed char grew timing: %+v", record.Characters[2])
	}

	output, err := l.LatestOutput()
	if err != nil {
		t.Fatalf("latest output: %v", err)
	}
	if output != "hi!" {
		t.Errorf("expected output 'hi!', got %q", output)
	}

	// Timestamped copies exist alongside the latest files.
	entries, err := os.ReadDir(filepath.Join(dir, "alignment"))
	if err != nil {
		t.Fatalf("read alignment dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected alignment.txt + 1 timestamped file, got %d entries", len(entries))
	}
}

func TestLogger_EmptyUtteranceIsNoOp(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	if err := l.SaveUtterance(nil); err != nil {
		t.Fatalf("save empty utterance: %v", err)
	}

	record, err := l.LatestAlignment()
	if err != nil {
		t.Fatalf("latest alignment: %v", err)
	}
	if record != nil {
		t.Errorf("expected no record, got %+v", record)
	}

	output, err := l.LatestOutput()
	if err != nil {
		t.Fatalf("latest output: %v", err)
	}
	if output != "" {
		t.Errorf("expected empty output, got %q", output)
	}
}

func TestLogger_RuneCountsForMultibyteText(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	units := []transcript.SpeechUnit{
		{Seq: 0, Text: "م", Start: floatPtr(0.0), End: floatPtr(0.1)},
		{Seq: 1, Text: "ر", Start: floatPtr(0.1), End: floatPtr(0.2)},
	}
	if err := l.SaveUtterance(units); err != nil {
		t.Fatalf("save utterance: %v", err)
	}

	record, err := l.LatestAlignment()
	if err != nil {
		t.Fatalf("latest alignment: %v", err)
	}
	if record.TextLength != 2 {
		t.Errorf("expected rune length 2, got %d", record.TextLength)
	}
}
