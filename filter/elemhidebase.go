package filter

import (
	"regexp"
	"strings"

	"github.com/AdguardTeam/filtercore/internal/text"
	"golang.org/x/exp/slices"
)

// elemHideBaseData holds the substring offsets recorded while parsing an
// element-hiding rule: domainsEnd is the index of the delimiter's first
// '#', selectorStart is the index of the first selector character. Both
// index into the owning Filter's canonical text, which is never
// reallocated after interning, so these offsets stay valid for the
// Filter's lifetime.
type elemHideBaseData struct {
	domainsEnd    int
	selectorStart int
}

// disqualifyingDomainChars, seen before the first '#', disqualify a
// candidate element-hide filter, sending it back to the RegExp parser.
const disqualifyingDomainChars = `/*|@"!`

// cssPropertySelectorSingle and cssPropertySelectorDouble match the legacy
// [-abp-properties='...'] (or double-quoted) attribute selector syntax
// that the parser rewrites into the emulation selector function
// :-abp-properties(...). RE2 has no backreferences to tie the opening and
// closing quote together, hence one pattern per quote character.
var cssPropertySelectorSingle = regexp.MustCompile(`^\[-abp-properties='(.*)'\]$`)
var cssPropertySelectorDouble = regexp.MustCompile(`^\[-abp-properties="(.*)"\]$`)

// matchCSSProperty reports whether selector is the legacy
// [-abp-properties='value'] (or double-quoted) form, returning value.
func matchCSSProperty(selector string) (value string, ok bool) {
	if m := cssPropertySelectorSingle.FindStringSubmatch(selector); m != nil {
		return m[1], true
	}
	if m := cssPropertySelectorDouble.FindStringSubmatch(selector); m != nil {
		return m[1], true
	}

	return "", false
}

// parseElemHideBase scans raw as "[domains] delimiter [spaces] selector"
// where delimiter is one of "##", "#@#", "#?#", with stray spaces allowed
// anywhere before the selector. It reports ok=false when raw doesn't match
// this grammar at all, letting the RegExp parser take over.
//
// On success it returns the classified Type, the rebuilt canonical text
// (spaces compacted out of the domains-plus-delimiter region, domains
// lower-cased), and the offsets into that canonical text.
func parseElemHideBase(
	raw string,
	fold text.Folder,
) (typ Type, canonical string, reason error, data elemHideBaseData, ok bool) {
	hashIdx := strings.IndexByte(raw, '#')
	if hashIdx < 0 {
		return Unknown, "", nil, data, false
	}

	domainsPart := raw[:hashIdx]
	if strings.ContainsAny(domainsPart, disqualifyingDomainChars) {
		return Unknown, "", nil, data, false
	}

	rest := skipSpaces(raw[hashIdx+1:])

	typ = ElemHide
	delim := "##"
	if len(rest) > 0 {
		switch rest[0] {
		case '@':
			typ, delim = ElemHideException, "#@#"
			rest = skipSpaces(rest[1:])
		case '?':
			typ, delim = ElemHideEmulation, "#?#"
			rest = skipSpaces(rest[1:])
		}
	}

	if len(rest) == 0 || rest[0] != '#' {
		return Unknown, "", nil, data, false
	}

	selector := skipSpaces(rest[1:])
	if selector == "" {
		return Unknown, "", nil, data, false
	}

	compactDomains := text.LowerASCII(strings.ReplaceAll(domainsPart, " ", ""), fold)

	if typ == ElemHide {
		if value, isCSSProp := matchCSSProperty(selector); isCSSProp {
			selector = ":-abp-properties(" + value + ")"
			delim = "#?#"
			typ = ElemHideEmulation
		}
	}

	canonical = compactDomains + delim + selector

	if typ == ElemHideEmulation && compactDomains == "" {
		return Invalid, canonical, ErrElemHideEmulationNoDomain, data, true
	}

	data.domainsEnd = len(compactDomains)
	data.selectorStart = data.domainsEnd + len(delim)

	return typ, canonical, nil, data, true
}

func skipSpaces(s string) string {
	i := 0
	for i < len(s) && s[i] == ' ' {
		i++
	}

	return s[i:]
}

// escapeSelectorBraces escapes CSS-significant '{' and '}' with their hex
// escape form so a selector can be embedded directly into a stylesheet
// rule body without breaking out of the selector position.
func escapeSelectorBraces(selector string) string {
	if !strings.ContainsAny(selector, "{}") {
		return selector
	}

	var b strings.Builder
	b.Grow(len(selector) + 8)
	for i := 0; i < len(selector); i++ {
		switch selector[i] {
		case '{':
			b.WriteString(`\7B `)
		case '}':
			b.WriteString(`\7D `)
		default:
			b.WriteByte(selector[i])
		}
	}

	return b.String()
}

// DomainsSource returns the raw (lower-cased, space-compacted) domain-list
// substring of the canonical text, the span the domain map is built from.
// It is empty for non-ElemHideBase filters.
func (f *Filter) DomainsSource() string {
	if f.elemHide == nil {
		return ""
	}

	return f.text[:f.elemHide.domainsEnd]
}

// Selector returns the raw (unescaped) selector substring of an
// ElemHideBase filter's canonical text. Use GetSelector for the
// stylesheet-safe, brace-escaped form.
func (f *Filter) Selector() string {
	if f.elemHide == nil {
		return ""
	}

	return f.text[f.elemHide.selectorStart:]
}

// GetSelector returns the filter's selector with '{' and '}' escaped to
// their CSS hex-escape form, so it can be embedded safely into a
// stylesheet.
func (f *Filter) GetSelector() string {
	return escapeSelectorBraces(f.Selector())
}

// GetSelectorDomain returns a comma-joined, sorted list of the filter's
// include-domains, for hosts that key injected stylesheets by the domains
// a selector applies to.
func (f *Filter) GetSelectorDomain() string {
	if f.active == nil || f.active.domains == nil {
		return ""
	}

	domains := make([]string, 0, len(f.active.domains))
	for d, include := range f.active.domains {
		if d != "" && include {
			domains = append(domains, d)
		}
	}
	slices.Sort(domains)

	return strings.Join(domains, ",")
}
