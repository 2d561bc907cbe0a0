// Package cli provides output and progress helpers for the Tanya command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" (or empty) and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// AnswerOutput is the one-shot ask result.
type AnswerOutput struct {
	Question string                `json:"question"`
	Answer   string                `json:"answer"`
	Process  *models.ProcessResult `json:"process"`
}

// WriteAnswer writes a one-shot answer to w in the given format.
func WriteAnswer(w io.Writer, out *AnswerOutput, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, out)
	}
	_, err := fmt.Fprintln(w, out.Answer)
	return err
}

// WriteProcessResult writes the ingestion banner, plus skipped documents.
func WriteProcessResult(w io.Writer, result *models.ProcessResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "%s (%d chunks in %s)\n", result.Message(), result.Chunks, result.Elapsed.Round(time.Millisecond))
	for _, name := range result.Skipped {
		fmt.Fprintf(w, "  skipped: %s\n", name)
	}
	return nil
}

type chunkOutput struct {
	Position int    `json:"position"`
	Runes    int    `json:"runes"`
	Text     string `json:"text"`
}

// WriteChunks writes chunks to w. Text output previews each chunk on one line,
// truncated to preview runes (no limit when preview <= 0).
func WriteChunks(w io.Writer, chunks []string, preview int, format OutputFormat) error {
	if format == OutputJSON {
		out := make([]chunkOutput, len(chunks))
		for i, c := range chunks {
			out[i] = chunkOutput{Position: i, Runes: utf8.RuneCountInString(c), Text: c}
		}
		return writeJSON(w, out)
	}
	fmt.Fprintf(w, "%d chunks\n", len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %d runes\n", i, utf8.RuneCountInString(c))
		fmt.Fprintf(w, "%s\n", utils.Truncate(utils.OneLine(c), preview))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
