package model

import "time"

// CapabilityFlags lists what a backend supports. Shared test bodies branch on
// these instead of on the backend itself.
type CapabilityFlags struct {
	StrictEquality                  bool
	IntegerPrecision                int
	SupportsAnsi                    bool
	SupportsUnicodeToAnsiConversion bool
	SupportsLargeStringComparisons  bool
	SupportsBinaryKeys              bool
	SupportsDecimalComparisons      bool
	DefaultDateTime                 time.Time
	PreservesDateTimeKind           bool

	// IgnoredDiagnostics are driver log messages suppressed for this backend.
	IgnoredDiagnostics []string
}

// CapabilitySet is a read-only view of CapabilityFlags, fixed at construction.
type CapabilitySet struct {
	flags CapabilityFlags
}

// NewCapabilitySet copies flags into an immutable set.
func NewCapabilitySet(flags CapabilityFlags) CapabilitySet {
	flags.IgnoredDiagnostics = append([]string(nil), flags.IgnoredDiagnostics...)
	return CapabilitySet{flags: flags}
}

// MongoCapabilities describes MongoDB.
func MongoCapabilities() CapabilitySet {
	return NewCapabilitySet(CapabilityFlags{
		StrictEquality:                  true,
		IntegerPrecision:                53,
		SupportsAnsi:                    false,
		SupportsUnicodeToAnsiConversion: false,
		SupportsLargeStringComparisons:  true,
		SupportsBinaryKeys:              false,
		SupportsDecimalComparisons:      true,
		DefaultDateTime:                 time.Time{},
		PreservesDateTimeKind:           false,
		IgnoredDiagnostics: []string{
			"Server selection started",
			"Server selection succeeded",
			"Waiting for suitable server to become available",
		},
	})
}

func (c CapabilitySet) StrictEquality() bool  { return c.flags.StrictEquality }
func (c CapabilitySet) IntegerPrecision() int { return c.flags.IntegerPrecision }
func (c CapabilitySet) SupportsAnsi() bool    { return c.flags.SupportsAnsi }
func (c CapabilitySet) SupportsUnicodeToAnsiConversion() bool {
	return c.flags.SupportsUnicodeToAnsiConversion
}
func (c CapabilitySet) SupportsLargeStringComparisons() bool {
	return c.flags.SupportsLargeStringComparisons
}
func (c CapabilitySet) SupportsBinaryKeys() bool         { return c.flags.SupportsBinaryKeys }
func (c CapabilitySet) SupportsDecimalComparisons() bool { return c.flags.SupportsDecimalComparisons }
func (c CapabilitySet) DefaultDateTime() time.Time       { return c.flags.DefaultDateTime }
func (c CapabilitySet) PreservesDateTimeKind() bool      { return c.flags.PreservesDateTimeKind }

// IgnoredDiagnostics returns a copy of the suppressed driver messages.
func (c CapabilitySet) IgnoredDiagnostics() []string {
	return append([]string(nil), c.flags.IgnoredDiagnostics...)
}

// Flags returns a copy of the underlying flags.
func (c CapabilitySet) Flags() CapabilityFlags {
	f := c.flags
	f.IgnoredDiagnostics = c.IgnoredDiagnostics()
	return f
}

// Vars exposes the flags to expression evaluation under camelCase names.
func (c CapabilitySet) Vars() map[string]interface{} {
	return map[string]interface{}{
		"strictEquality":                  c.flags.StrictEquality,
		"integerPrecision":                int64(c.flags.IntegerPrecision),
		"supportsAnsi":                    c.flags.SupportsAnsi,
		"supportsUnicodeToAnsiConversion": c.flags.SupportsUnicodeToAnsiConversion,
		"supportsLargeStringComparisons":  c.flags.SupportsLargeStringComparisons,
		"supportsBinaryKeys":              c.flags.SupportsBinaryKeys,
		"supportsDecimalComparisons":      c.flags.SupportsDecimalComparisons,
		"preservesDateTimeKind":           c.flags.PreservesDateTimeKind,
	}
}
