package filter

import "github.com/AdguardTeam/golibs/errors"

// Invalid-filter reasons. A filter whose Type is Invalid carries exactly
// one of these; the token form of the message is stable so hosts can key
// UI strings or telemetry off it. FromText itself never fails: a rule
// that can't be honored still produces a well-formed Invalid filter.
const (
	// ErrUnknownOption means a "$option" token wasn't recognized.
	ErrUnknownOption errors.Error = "filter_unknown_option"

	// ErrInvalidRegexp means a "/regex/" pattern failed to compile.
	ErrInvalidRegexp errors.Error = "filter_invalid_regexp"

	// ErrEmptyRegexp means a "/regex/" pattern had nothing between the
	// slashes.
	ErrEmptyRegexp errors.Error = "filter_invalid_regexp_empty"

	// ErrElemHideEmulationNoDomain means a "#?#" filter named no domains;
	// emulation rules are evaluated by a per-site content script and a
	// generic one would run everywhere.
	ErrElemHideEmulationNoDomain errors.Error = "filter_elemhideemulation_nodomain"
)
