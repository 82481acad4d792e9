package keyword

import (
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Lower-cases free-form text and folds away combining marks, so that "Frée Mönëy" becomes "free money".
//
// Other characters (punctuation, whitespace) are left as-is, so word boundaries are preserved for matching.
func FoldText(text string) string {
	// transformers are stateful; this needs to be re-defined in every function call to prevent a race condition
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(normFunc, text)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		folded = text
	}
	return strings.ToLower(folded)
}
