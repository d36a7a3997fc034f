package subscription

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/AdguardTeam/filtercore/filter"
	"github.com/AdguardTeam/filtercore/notify"
	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
)

// ErrMalformedSection is returned by Read when a line appears outside any
// recognized "[Section]" header, or a "[Subscription filters]" section
// appears before its owning "[Subscription]" header.
const ErrMalformedSection errors.Error = "subscription: malformed section"

// Write serializes st in the plain-text, line-oriented, append-only wire
// format: first a "[Filter]" section per filter that carries non-default
// state (disabled, hit counts), then, per subscription, a "[Subscription]"
// section with its metadata and a "[Subscription filters]" section
// enumerating its filter texts in order.
func Write(w io.Writer, st *Storage) error {
	bw := bufio.NewWriter(w)

	written := make(map[string]struct{})
	for _, s := range st.Subscriptions() {
		for _, f := range s.Filters() {
			if !f.Disabled() && f.HitCount() == 0 && f.LastHit() == 0 {
				continue
			}
			if _, dup := written[f.Text()]; dup {
				continue
			}
			written[f.Text()] = struct{}{}

			writeFilter(bw, f)
		}
	}

	for _, s := range st.Subscriptions() {
		writeSubscription(bw, s)
	}

	return bw.Flush()
}

func writeFilter(w *bufio.Writer, f *filter.Filter) {
	fmt.Fprintln(w, "[Filter]")
	fmt.Fprintf(w, "text=%s\n", f.Text())
	if f.Disabled() {
		fmt.Fprintln(w, "disabled=true")
	}
	writeIfNonZero(w, "hitCount", int64(f.HitCount()))
	writeIfNonZero(w, "lastHit", f.LastHit())
}

func writeSubscription(w *bufio.Writer, s *Subscription) {
	fmt.Fprintln(w, "[Subscription]")
	fmt.Fprintf(w, "id=%s\n", s.ID())
	fmt.Fprintf(w, "title=%s\n", s.Title())
	if s.FixedTitle() {
		fmt.Fprintln(w, "fixedTitle=true")
	}
	if s.Disabled() {
		fmt.Fprintln(w, "disabled=true")
	}

	if s.downloadable {
		fmt.Fprintln(w, "downloadable=true")
		writeIfNonEmpty(w, "homepage", s.homepage)
		writeIfNonZero(w, "expires", s.expires)
		writeIfNonZero(w, "lastCheck", s.lastCheck)
		writeIfNonZero(w, "lastDownload", s.lastDownload)
		writeIfNonZero(w, "lastSuccess", s.lastSuccess)
		writeIfNonZero(w, "errorCount", int64(s.errorCount))
		writeIfNonZero(w, "dataRevision", s.dataRevision)
		writeIfNonEmpty(w, "requiredVersion", s.requiredVersion)
		writeIfNonZero(w, "downloadCount", int64(s.downloadCount))
		writeIfNonEmpty(w, "downloadStatus", s.downloadStatus)
	} else if tokens := defaultsTokens(s.defaults); tokens != "" {
		fmt.Fprintf(w, "defaults=%s\n", tokens)
	}

	if len(s.filters) == 0 {
		return
	}

	fmt.Fprintln(w, "[Subscription filters]")
	for _, f := range s.filters {
		// A filter text can itself look like a section header; escape the
		// brackets so the reader never confuses it for one.
		fmt.Fprintln(w, strings.ReplaceAll(f.Text(), "[", `\[`))
	}
}

func writeIfNonEmpty(w *bufio.Writer, key, value string) {
	if value != "" {
		fmt.Fprintf(w, "%s=%s\n", key, value)
	}
}

func writeIfNonZero(w *bufio.Writer, key string, value int64) {
	if value != 0 {
		fmt.Fprintf(w, "%s=%d\n", key, value)
	}
}

func defaultsTokens(defaults DefaultCategory) string {
	var tokens []string
	if defaults&DefaultBlocking != 0 {
		tokens = append(tokens, "blocking")
	}
	if defaults&DefaultWhitelist != 0 {
		tokens = append(tokens, "whitelist")
	}
	if defaults&DefaultElemHide != 0 {
		tokens = append(tokens, "elemhide")
	}

	return strings.Join(tokens, " ")
}

func parseDefaultsTokens(value string) DefaultCategory {
	var defaults DefaultCategory
	for _, tok := range strings.Fields(value) {
		switch tok {
		case "blocking":
			defaults |= DefaultBlocking
		case "whitelist":
			defaults |= DefaultWhitelist
		case "elemhide":
			defaults |= DefaultElemHide
		}
	}

	return defaults
}

// sectionKind identifies which bracketed header a Read pass is currently
// inside.
type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionFilter
	sectionSubscription
	sectionSubscriptionFilters
)

// filterState is the persisted per-filter state accumulated from a
// "[Filter]" section, applied when the same text later appears in a
// subscription's filter list.
type filterState struct {
	disabled bool
	hitCount int
	lastHit  int64
}

// Read parses the wire format Write produces, appending subscriptions
// (using fr to intern filter text) to st in order. A line outside any
// recognized section, or a "[Subscription filters]" header before its
// owning "[Subscription]", is reported via ErrMalformedSection; unknown
// keys within a recognized section are ignored, keeping the format
// forward-compatible.
func Read(r io.Reader, st *Storage, fr *filter.Registry, sink notify.Sink) error {
	sc := bufio.NewScanner(r)

	kind := sectionNone
	states := make(map[string]*filterState)
	var curState *filterState
	var cur *Subscription

	flushSubscription := func() {
		if cur != nil {
			st.AddSubscription(cur)
			cur = nil
		}
	}

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch line {
			case "[Filter]":
				kind = sectionFilter
				curState = &filterState{}
			case "[Subscription]":
				flushSubscription()
				kind = sectionSubscription
			case "[Subscription filters]":
				if cur == nil {
					return ErrMalformedSection
				}
				kind = sectionSubscriptionFilters
			default:
				return ErrMalformedSection
			}

			continue
		}

		switch kind {
		case sectionFilter:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				return ErrMalformedSection
			}
			if key == "text" {
				states[value] = curState
			} else {
				applyFilterField(curState, key, value)
			}

		case sectionSubscription:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				return ErrMalformedSection
			}
			applySubscriptionField(&cur, key, value, sink)

		case sectionSubscriptionFilters:
			text := strings.ReplaceAll(line, `\[`, "[")
			f, ok := fr.FromText(text)
			if !ok {
				slog.Error("cannot restore filter", "subscription", cur.ID(), "text", text)

				continue
			}
			if state, known := states[f.Text()]; known {
				f.RestoreState(state.disabled, state.hitCount, state.lastHit)
			}
			cur.InsertFilterAt(f, len(cur.filters))

		default:
			return ErrMalformedSection
		}
	}
	flushSubscription()

	return sc.Err()
}

func applySubscriptionField(cur **Subscription, key, value string, sink notify.Sink) {
	if *cur == nil {
		if key != "id" {
			return
		}
		*cur = newSubscription(value, sink)

		return
	}

	s := *cur
	switch key {
	case "title":
		s.title = value
	case "fixedTitle":
		s.fixedTitle = value == "true"
	case "disabled":
		s.disabled = value == "true"
	case "downloadable":
		s.downloadable = value == "true"
	case "homepage":
		s.homepage = value
	case "expires":
		s.expires = parseInt64(key, value)
	case "lastCheck":
		s.lastCheck = parseInt64(key, value)
	case "lastDownload":
		s.lastDownload = parseInt64(key, value)
	case "lastSuccess":
		s.lastSuccess = parseInt64(key, value)
	case "errorCount":
		s.errorCount = int(parseInt64(key, value))
	case "dataRevision":
		s.dataRevision = parseInt64(key, value)
	case "requiredVersion":
		s.requiredVersion = value
	case "downloadCount":
		s.downloadCount = int(parseInt64(key, value))
	case "downloadStatus":
		s.downloadStatus = value
	case "defaults":
		s.defaults = parseDefaultsTokens(value)
	}
}

func applyFilterField(state *filterState, key, value string) {
	switch key {
	case "disabled":
		state.disabled = value == "true"
	case "hitCount":
		state.hitCount = int(parseInt64(key, value))
	case "lastHit":
		state.lastHit = parseInt64(key, value)
	}
}

// parseInt64 parses a decimal field value, logging rather than failing on
// garbage so one bad line doesn't lose the rest of the file.
func parseInt64(key, s string) (n int64) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		slog.Error("cannot parse subscription field", "key", key, slogutil.KeyError, err)
	}

	return n
}
