package form

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"mmunblock/internal/config"
)

// Convention names the controls and markers of the admin skin. Extraction,
// planning, and serialization only recognise what the convention names.
type Convention struct {
	// BlockSuffix ends the name of a member's block-flag checkbox; the prefix
	// is the URL-quoted member address.
	BlockSuffix string
	// BounceMarker is the annotation that marks a checked flag as bounce
	// disablement rather than an administrative block. Empty disables the
	// distinction.
	BounceMarker  string
	PasswordField string
	SubmitButton  string
	SubmitValue   string
	// FormMarkers are field names that identify the member-management form
	// even when it lists no members.
	FormMarkers []string
}

// DefaultConvention returns the stock admin skin convention.
func DefaultConvention() Convention {
	cfg := config.Default()
	return ConventionFrom(cfg.Conventions)
}

// ConventionFrom builds a convention from configuration.
func ConventionFrom(c config.Conventions) Convention {
	return Convention{
		BlockSuffix:   c.BlockSuffix,
		BounceMarker:  c.BounceMarker,
		PasswordField: c.PasswordField,
		SubmitButton:  c.SubmitButton,
		SubmitValue:   c.SubmitValue,
		FormMarkers:   slices.Clone(c.FormMarkers),
	}
}

// BlockFlag reports whether name is a block-flag field name and returns the
// normalized member address it encodes.
func (c Convention) BlockFlag(name string) (string, bool) {
	if c.BlockSuffix == "" || len(name) <= len(c.BlockSuffix) || !strings.HasSuffix(name, c.BlockSuffix) {
		return "", false
	}
	raw := strings.TrimSuffix(name, c.BlockSuffix)
	if unquoted, err := url.PathUnescape(raw); err == nil {
		raw = unquoted
	}
	addr := NormalizeAddress(raw)
	if addr == "" {
		return "", false
	}
	return addr, true
}

// StateOf derives the flag state of a block-flag field.
func (c Convention) StateOf(f Field) FlagState {
	if !f.IsBlockFlag() || !f.Checked {
		return Clear
	}
	if c.BounceMarker != "" && strings.Contains(f.Marker, c.BounceMarker) {
		return BounceDisabled
	}
	return Blocked
}

// IsMarker reports whether name identifies a member-management form.
func (c Convention) IsMarker(name string) bool {
	return name != "" && (name == c.SubmitButton || slices.Contains(c.FormMarkers, name))
}

// NormalizeAddress trims and case-folds a member address so that addresses
// compare equal across pages regardless of how the console rendered them.
func NormalizeAddress(addr string) string {
	return cases.Fold().String(strings.TrimSpace(addr))
}
