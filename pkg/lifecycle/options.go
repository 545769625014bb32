package lifecycle

import "regexp"

const (
	// MaxChapterFilter is the maximum number of chapter ids in an export.
	MaxChapterFilter = 50

	// MaxCustomNameLength is the maximum length of a custom artifact name.
	MaxCustomNameLength = 100

	// MaxDateRangeMonths caps the span of a date-range filter.
	MaxDateRangeMonths = 24
)

var customNamePattern = regexp.MustCompile(`^[A-Za-z0-9 _-]+$`)

// Validate checks the options against the export contract. It returns a
// *ValidationError describing the first violation found, or nil.
func (o *ExportOptions) Validate() error {
	if !o.Format.Valid() {
		return NewValidationError("format", "must be \"archive\" or \"document\"")
	}

	if !o.IncludeAudio && !o.IncludePhotos && !o.IncludeTranscripts &&
		!o.IncludeInteractions && !o.IncludeChapterSummaries {
		return NewValidationError("include", "at least one content type must be selected")
	}

	if o.CustomName != "" {
		if len(o.CustomName) > MaxCustomNameLength {
			return NewValidationError("customName", "must be at most 100 characters")
		}
		if !customNamePattern.MatchString(o.CustomName) {
			return NewValidationError("customName", "may only contain letters, digits, spaces, underscores, and hyphens")
		}
	}

	if len(o.Chapters) > MaxChapterFilter {
		return NewValidationError("chapters", "at most 50 chapters may be selected")
	}

	if o.DateRange != nil {
		if !o.DateRange.Start.Before(o.DateRange.End) {
			return NewValidationError("dateRange", "start must be before end")
		}
		if o.DateRange.End.After(o.DateRange.Start.AddDate(0, MaxDateRangeMonths, 0)) {
			return NewValidationError("dateRange", "span must be at most 24 months")
		}
	}

	return nil
}
