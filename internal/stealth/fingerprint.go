// Package stealth implements the Stealth Profile from spec.md §4.10: a
// deterministic per-seed browser fingerprint generator, plus the
// behavioral delay utilities a Renderer uses to avoid looking like a bot.
//
// Grounded on domainutil.BuildFingerprint for the "derive a stable
// identity from a string input" shape (there: canonicalize a URL into a
// cache key; here: hash a seed into a reproducible set of browser
// properties), generalized from a cache key into a full emulated-browser
// profile.
package stealth

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Fingerprint is one internally-consistent emulated-browser identity.
type Fingerprint struct {
	UserAgent         string
	Viewport          Viewport
	DeviceScaleFactor float64
	Locale            string
	TimezoneID        string
	Platform          string
	ClientHints       ClientHints
}

type Viewport struct {
	Width  int
	Height int
}

// ClientHints mirrors the Sec-CH-UA-* header family; Platform must agree
// with Fingerprint.Platform and the UserAgent string's own platform token.
type ClientHints struct {
	Platform       string
	Mobile         bool
	FullVersionList string
}

var deviceScaleFactors = []float64{1, 1.25, 1.5, 2}

// localeTimezone pairs a locale with one compatible timezone, so a
// generated fingerprint never claims a locale/timezone combination that
// couldn't occur together in the wild.
type localeTimezone struct {
	locale   string
	timezone string
}

var compatibleLocales = []localeTimezone{
	{"en-US", "America/New_York"},
	{"en-GB", "Europe/London"},
	{"de-DE", "Europe/Berlin"},
	{"fr-FR", "Europe/Paris"},
	{"es-ES", "Europe/Madrid"},
	{"ja-JP", "Asia/Tokyo"},
	{"pt-BR", "America/Sao_Paulo"},
	{"en-AU", "Australia/Sydney"},
}

// platformProfile bundles a platform's UserAgent fragment with its
// Sec-CH-UA-Platform value, kept together so the two can never disagree.
type platformProfile struct {
	uaToken      string // substring embedded in the generated UserAgent
	platform     string // Fingerprint.Platform / ClientHints.Platform value
	chromeBuild  string
}

var platforms = []platformProfile{
	{uaToken: "Windows NT 10.0; Win64; x64", platform: "Windows", chromeBuild: "120.0.6099.130"},
	{uaToken: "Macintosh; Intel Mac OS X 10_15_7", platform: "macOS", chromeBuild: "120.0.6099.130"},
	{uaToken: "X11; Linux x86_64", platform: "Linux", chromeBuild: "120.0.6099.130"},
}

// Generate produces a deterministic Fingerprint for seed: the same seed
// always yields byte-identical fields (spec.md §8 invariant 6), satisfying
// the cross-machine reproducibility requirement without any shared state.
// An empty seed falls back to process-global (non-reproducible) randomness.
func Generate(seed string) Fingerprint {
	r := newSeededRand(seed)
	return build(r)
}

func newSeededRand(seed string) *rand.Rand {
	if seed == "" {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	sum := sha256.Sum256([]byte(seed))
	s1 := binary.BigEndian.Uint64(sum[0:8])
	s2 := binary.BigEndian.Uint64(sum[8:16])
	return rand.New(rand.NewPCG(s1, s2))
}

func build(r *rand.Rand) Fingerprint {
	profile := platforms[r.IntN(len(platforms))]
	lt := compatibleLocales[r.IntN(len(compatibleLocales))]
	dsf := deviceScaleFactors[r.IntN(len(deviceScaleFactors))]

	viewports := []Viewport{{1920, 1080}, {1366, 768}, {1536, 864}, {1440, 900}, {1280, 720}}
	vp := viewports[r.IntN(len(viewports))]

	return Fingerprint{
		UserAgent:         fmt.Sprintf("Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", profile.uaToken, profile.chromeBuild),
		Viewport:          vp,
		DeviceScaleFactor: dsf,
		Locale:            lt.locale,
		TimezoneID:        lt.timezone,
		Platform:          profile.platform,
		ClientHints: ClientHints{
			Platform:        profile.platform,
			Mobile:          false,
			FullVersionList: fmt.Sprintf(`"Chromium";v="%s"`, profile.chromeBuild),
		},
	}
}

// Headers returns the HTTP headers a Renderer should send to present this
// fingerprint (spec.md §4.10 "getFingerprintHeaders").
func (f Fingerprint) Headers() map[string]string {
	lang, _, _ := splitLocale(f.Locale)
	return map[string]string{
		"User-Agent":         f.UserAgent,
		"Accept-Language":    fmt.Sprintf("%s,%s;q=0.9,en;q=0.8", f.Locale, lang),
		"Sec-CH-UA-Platform": `"` + f.ClientHints.Platform + `"`,
		"Sec-CH-UA":          f.ClientHints.FullVersionList,
	}
}

func splitLocale(locale string) (lang, region string, ok bool) {
	for i, r := range locale {
		if r == '-' {
			return locale[:i], locale[i+1:], true
		}
	}
	return locale, "", false
}
