package matchcontext

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DocumentDomain extracts the lower-cased hostname from documentURL, for
// hosts that only have a URL (not a bare domain) to hand to Matches /
// IsActiveOnDomain. The full hostname is returned rather than the eTLD+1,
// since the domain-map suffix walk itself handles matching against
// superdomains.
func DocumentDomain(documentURL string) (string, error) {
	u, err := url.Parse(documentURL)
	if err != nil {
		return "", err
	}

	return strings.ToLower(u.Hostname()), nil
}

// IsThirdParty reports whether requestURL is third-party relative to
// documentURL, defined as their registrable domains (eTLD+1) differing.
// It's a convenience a host can use to compute the thirdParty argument to
// Matches when it only has two URLs.
func IsThirdParty(requestURL, documentURL string) (bool, error) {
	reqHost, err := hostOf(requestURL)
	if err != nil {
		return false, err
	}

	docHost, err := hostOf(documentURL)
	if err != nil {
		return false, err
	}

	reqDomain, err := effectiveDomain(reqHost)
	if err != nil {
		return false, err
	}

	docDomain, err := effectiveDomain(docHost)
	if err != nil {
		return false, err
	}

	return reqDomain != docDomain, nil
}

func hostOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	return strings.ToLower(u.Hostname()), nil
}

// effectiveDomain returns host's registrable domain (eTLD+1), falling
// back to host itself when publicsuffix can't derive one (e.g. a
// single-label host such as "localhost"). IP addresses are not
// special-cased.
func effectiveDomain(host string) (string, error) {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}

	return d, nil
}
