package engine

import (
	"crypto/sha256"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/findsync/findsync/internal/findings"
)

// sentinelPath stands in for findings that have no file location, e.g.
// project-level findings. It keeps fingerprinting total.
const sentinelPath = "<project>"

// Fingerprint is the primary signature used to bucket candidate findings.
// Two findings are candidates for each other when their Fingerprints are
// equal. The kind is part of the signature so an issue never buckets with a
// hotspot, whatever their rule keys look like. Computing it never consults
// the opposite-side collection.
type Fingerprint struct {
	Kind        findings.Kind
	Rule        string
	Path        string
	MessageHash string
}

// TieBreak is the secondary signature used to disambiguate among candidates
// sharing one Fingerprint. Only an exact TieBreak equality is a valid
// disambiguator.
type TieBreak struct {
	Line      int
	CreatedAt time.Time
}

// ComputeFingerprint derives the primary signature of a finding. It is a pure
// function of finding content and never fails. When ignoreComponents is true
// the file path is excluded, which is what cross-project sync needs when the
// two projects lay out their sources differently.
func ComputeFingerprint(f *findings.Finding, ruleMap map[string]string, ignoreComponents bool) Fingerprint {
	rule := f.Rule
	if mapped, ok := ruleMap[rule]; ok && mapped != "" {
		rule = mapped
	}

	filePath := sentinelPath
	if !ignoreComponents {
		if p := normalizePath(f.File); p != "" {
			filePath = p
		}
	} else {
		filePath = ""
	}

	return Fingerprint{
		Kind:        f.Kind,
		Rule:        rule,
		Path:        filePath,
		MessageHash: hashMessage(f.Message),
	}
}

// ComputeTieBreak derives the secondary signature of a finding.
func ComputeTieBreak(f *findings.Finding) TieBreak {
	return TieBreak{
		Line:      f.Line,
		CreatedAt: f.CreatedAt.UTC().Truncate(time.Second),
	}
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	return p
}

// hashMessage hashes the finding message after collapsing whitespace runs and
// numeric literals. Analyzer messages are templated; generated identifiers
// like "variable_12" differ between two analyses of the same code and would
// otherwise push equal findings into distinct buckets.
func hashMessage(message string) string {
	normalized := normalizeMessage(message)
	sum := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", sum[:])
}

func normalizeMessage(message string) string {
	var b strings.Builder
	b.Grow(len(message))

	lastSpace := false
	lastDigit := false
	for _, r := range message {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
			lastDigit = false
		case r >= '0' && r <= '9':
			if !lastDigit {
				b.WriteByte('#')
			}
			lastDigit = true
			lastSpace = false
		default:
			b.WriteRune(r)
			lastSpace = false
			lastDigit = false
		}
	}
	return strings.TrimSpace(b.String())
}
