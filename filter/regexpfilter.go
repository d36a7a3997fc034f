package filter

import (
	"strings"

	"github.com/AdguardTeam/filtercore/regexpsvc"
)

// ContentType is a bitmask over request resource types. A network
// filter's Matches only considers content types its mask includes.
type ContentType uint32

const (
	TypeOther             ContentType = 0x1
	TypeScript            ContentType = 0x2
	TypeImage             ContentType = 0x4
	TypeStylesheet        ContentType = 0x8
	TypeObject            ContentType = 0x10
	TypeSubdocument       ContentType = 0x20
	TypeDocument          ContentType = 0x40
	TypeWebSocket         ContentType = 0x80
	TypeWebRTC            ContentType = 0x100
	TypePing              ContentType = 0x400
	TypeXMLHTTPRequest    ContentType = 0x800
	TypeObjectSubrequest  ContentType = 0x1000
	TypeMedia             ContentType = 0x4000
	TypeFont              ContentType = 0x8000
	TypePopup             ContentType = 0x8000000
	TypeGenericBlock      ContentType = 0x10000000
	TypeGenericHide       ContentType = 0x20000000
	TypeElemHide          ContentType = 0x40000000

	typeAll ContentType = TypeOther | TypeScript | TypeImage | TypeStylesheet |
		TypeObject | TypeSubdocument | TypeDocument | TypeWebSocket | TypeWebRTC |
		TypePing | TypeXMLHTTPRequest | TypeObjectSubrequest | TypeMedia | TypeFont |
		TypePopup | TypeGenericBlock | TypeGenericHide | TypeElemHide

	// DefaultContentType is the mask a RegExpFilter gets when its options
	// never mention a content-type token: every bit except the ones a
	// filter author must opt into explicitly.
	DefaultContentType = typeAll &^ (TypeDocument | TypeElemHide | TypePopup | TypeGenericBlock | TypeGenericHide)
)

// contentTypeTokens maps a normalized ($option) token to the bit it
// controls. xbl and dtd are legacy tokens aliased to other; background
// aliases to image.
var contentTypeTokens = map[string]ContentType{
	"other":             TypeOther,
	"script":            TypeScript,
	"image":             TypeImage,
	"background":        TypeImage,
	"stylesheet":        TypeStylesheet,
	"object":            TypeObject,
	"subdocument":       TypeSubdocument,
	"document":          TypeDocument,
	"websocket":         TypeWebSocket,
	"webrtc":            TypeWebRTC,
	"ping":              TypePing,
	"xmlhttprequest":    TypeXMLHTTPRequest,
	"object-subrequest": TypeObjectSubrequest,
	"media":             TypeMedia,
	"font":              TypeFont,
	"popup":             TypePopup,
	"genericblock":      TypeGenericBlock,
	"generichide":       TypeGenericHide,
	"elemhide":          TypeElemHide,
	"xbl":               TypeOther,
	"dtd":               TypeOther,
}

// Tri is a tri-state flag: unset (no restriction), yes, or no. It backs
// both the third-party constraint and the collapse option.
type Tri int

const (
	TriAny Tri = iota
	TriYes
	TriNo
)

// regexpData holds a network filter's parsed-once fields. The pattern is
// compiled lazily except when the filter text used explicit /regex/
// syntax, which is compiled at parse time so a broken regexp surfaces as
// an Invalid filter instead of a silent never-match.
type regexpData struct {
	pattern  string
	literal  bool
	compiled bool
	handle   regexpsvc.Handle

	contentType ContentType
	matchCase   bool
	thirdParty  Tri
	collapse    Tri
}

func normalizeOptionName(name string) string {
	name = strings.ToLower(name)
	return strings.ReplaceAll(name, "_", "-")
}

func firstUnescapedDollar(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '$' && (i == 0 || s[i-1] != '\\') {
			return i
		}
	}

	return -1
}

// parseRegExpFilter parses a network rule. It always returns Blocking,
// Whitelist, or Invalid, never Unknown: by the time a text candidate
// reaches this parser, the element-hiding parser has already ruled out
// that syntax, so whatever remains is either a well-formed network filter
// or a malformed one.
func parseRegExpFilter(
	raw string,
	regexps regexpsvc.Service,
) (typ Type, canonical string, reason error, data regexpData, active *activeData) {
	canonical = strings.ReplaceAll(raw, " ", "")
	s := canonical

	whitelist := strings.HasPrefix(s, "@@")
	if whitelist {
		s = s[2:]
	}

	pattern := s
	optionsStr := ""
	if idx := firstUnescapedDollar(s); idx >= 0 {
		pattern = s[:idx]
		optionsStr = s[idx+1:]
	}

	data.contentType = DefaultContentType
	data.thirdParty = TriAny
	data.collapse = TriAny
	data.matchCase = false

	var domainTokens, sitekeyTokens []string
	typeMaskInitialized := false

	if optionsStr != "" {
		for _, opt := range strings.Split(optionsStr, ",") {
			if opt == "" {
				continue
			}

			name, value, hasValue := strings.Cut(opt, "=")

			negate := false
			if strings.HasPrefix(name, "~") {
				negate = true
				name = name[1:]
			}
			name = normalizeOptionName(name)

			switch name {
			case "domain":
				domainTokens = splitNonEmpty(strings.ToLower(value), '|')
				continue
			case "sitekey":
				sitekeyTokens = splitNonEmpty(value, '|')
				continue
			case "match-case":
				data.matchCase = !negate
				continue
			case "third-party":
				if negate {
					data.thirdParty = TriNo
				} else {
					data.thirdParty = TriYes
				}
				continue
			case "collapse":
				if negate {
					data.collapse = TriNo
				} else {
					data.collapse = TriYes
				}
				continue
			}

			if hasValue {
				return Invalid, canonical, ErrUnknownOption, data, nil
			}

			bit, known := contentTypeTokens[name]
			if !known {
				return Invalid, canonical, ErrUnknownOption, data, nil
			}

			if !typeMaskInitialized {
				if negate {
					data.contentType = DefaultContentType
				} else {
					data.contentType = 0
				}
				typeMaskInitialized = true
			}

			if negate {
				data.contentType &^= bit
			} else {
				data.contentType |= bit
			}
		}
	}

	data.pattern = pattern

	if len(pattern) >= 2 && pattern[0] == '/' && pattern[len(pattern)-1] == '/' {
		inner := pattern[1 : len(pattern)-1]
		if inner == "" {
			return Invalid, canonical, ErrEmptyRegexp, data, nil
		}

		h, err := regexps.Compile(inner, data.matchCase)
		if err != nil {
			return Invalid, canonical, ErrInvalidRegexp, data, nil
		}

		data.literal = true
		data.compiled = true
		data.handle = h
		data.pattern = inner
	}

	filterType := Blocking
	if whitelist {
		filterType = Whitelist
	}

	active = &activeData{
		domains:  buildDomainsMap(domainTokens),
		sitekeys: buildSitekeys(sitekeyTokens),
	}

	return filterType, canonical, nil, data, active
}

// ContentType returns the filter's content-type mask.
func (f *Filter) ContentType() ContentType {
	if f.regexp == nil {
		return 0
	}

	return f.regexp.contentType
}

// MatchCase reports whether the filter's pattern match is case-sensitive.
func (f *Filter) MatchCase() bool {
	return f.regexp != nil && f.regexp.matchCase
}

// ThirdParty returns the filter's third-party constraint.
func (f *Filter) ThirdParty() Tri {
	if f.regexp == nil {
		return TriAny
	}

	return f.regexp.thirdParty
}

// Collapse returns the filter's collapse option.
func (f *Filter) Collapse() Tri {
	if f.regexp == nil {
		return TriAny
	}

	return f.regexp.collapse
}

// Pattern returns the filter's shorthand or literal-regexp source pattern
// (post options-split, pre shorthand-to-regex translation).
func (f *Filter) Pattern() string {
	if f.regexp == nil {
		return ""
	}

	return f.regexp.pattern
}

// ensureCompiled lazily translates the shorthand pattern to a regular
// expression and compiles it. The transition is one-shot: once compiled,
// the handle is reused for every later Matches call.
func (f *Filter) ensureCompiled() bool {
	r := f.regexp
	if r.compiled {
		return true
	}

	regexSrc := ShorthandToRegexp(r.pattern)
	pattern := regexSrc
	if !r.matchCase {
		pattern = strings.ToLower(pattern)
	}

	h, err := f.registry.regexps.Compile(pattern, r.matchCase)
	if err != nil {
		return false
	}

	r.handle = h
	r.compiled = true

	return true
}

// Matches reports whether the filter applies to a request: content-type
// check, then third-party check, then domain/sitekey activation, and only
// then the (possibly lazily compiled) pattern test.
func (f *Filter) Matches(location string, typeMask ContentType, docDomain string, thirdParty bool, sitekey string) bool {
	r := f.regexp
	if r == nil {
		return false
	}

	if r.contentType&typeMask == 0 {
		return false
	}

	switch r.thirdParty {
	case TriYes:
		if !thirdParty {
			return false
		}
	case TriNo:
		if thirdParty {
			return false
		}
	}

	if !f.IsActiveOnDomain(docDomain, sitekey) {
		return false
	}

	if !f.ensureCompiled() {
		return false
	}

	text := location
	if !r.matchCase {
		text = strings.ToLower(text)
	}

	return f.registry.regexps.Test(r.handle, text)
}
