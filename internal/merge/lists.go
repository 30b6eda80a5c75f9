package merge

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// genreSynonyms maps lowercase provider genres to canonical names. A value
// with several entries splits a combined genre.
var genreSynonyms = map[string][]string{
	"sci-fi":             {"science fiction"},
	"science-fiction":    {"science fiction"},
	"scifi":              {"science fiction"},
	"sci-fi & fantasy":   {"science fiction", "fantasy"},
	"action & adventure": {"action", "adventure"},
	"war & politics":     {"war", "politics"},
	"kids":               {"children"},
	"children's":         {"children"},
	"musical":            {"music"},
	"soap opera":         {"soap"},
	"talk show":          {"talk"},
	"talk-show":          {"talk"},
	"game show":          {"game show"},
	"game-show":          {"game show"},
	"reality-tv":         {"reality"},
	"reality tv":         {"reality"},
	"home and garden":    {"home and garden"},
	"sports":             {"sport"},
	"biography":          {"biography"},
	"documentary":        {"documentary"},
	"suspense":           {"thriller"},
	"mini-series":        {"mini series"},
	"miniseries":         {"mini series"},
	"tv movie":           {"tv movie"},
	"anime":              {"anime"},
	"animation":          {"animation"},
	"superhero":          {"superhero"},
}

var titleCaser = cases.Title(language.Und)

// Genres canonicalizes and deduplicates genres, keeping first-seen order.
func Genres(in []string) []string {
	var out []string
	for _, g := range in {
		key := strings.ToLower(strings.TrimSpace(g))
		if key == "" {
			continue
		}
		names, ok := genreSynonyms[key]
		if !ok {
			names = []string{key}
		}
		for _, n := range names {
			n = titleCaser.String(n)
			if !contains(out, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// Countries converts country names or codes to lowercase two-letter region
// codes. Values that are not valid regions are dropped.
func Countries(in []string) []string {
	var out []string
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		code, ok := countryCode(c)
		if !ok {
			continue
		}
		if !contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

// countryNames covers the long names OMDb reports.
var countryNames = map[string]string{
	"united states":  "us",
	"usa":            "us",
	"united kingdom": "gb",
	"uk":             "gb",
	"canada":         "ca",
	"australia":      "au",
	"germany":        "de",
	"france":         "fr",
	"japan":          "jp",
	"south korea":    "kr",
	"spain":          "es",
	"italy":          "it",
	"new zealand":    "nz",
	"ireland":        "ie",
	"india":          "in",
	"china":          "cn",
	"mexico":         "mx",
	"brazil":         "br",
	"sweden":         "se",
	"denmark":        "dk",
	"norway":         "no",
}

func countryCode(c string) (string, bool) {
	if code, ok := countryNames[strings.ToLower(c)]; ok {
		return code, true
	}
	region, err := language.ParseRegion(c)
	if err != nil || !region.IsCountry() {
		return "", false
	}
	return strings.ToLower(region.String()), true
}

// Languages reduces language tags and names to lowercase base codes.
func Languages(in []string) []string {
	var out []string
	for _, l := range in {
		l = strings.TrimSpace(l)
		if l == "" || strings.EqualFold(l, "N/A") {
			continue
		}
		code := languageCode(l)
		if code != "" && !contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

var languageNames = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"japanese":   "ja",
	"korean":     "ko",
	"italian":    "it",
	"mandarin":   "zh",
	"chinese":    "zh",
	"hindi":      "hi",
	"russian":    "ru",
	"swedish":    "sv",
	"danish":     "da",
	"norwegian":  "no",
	"portuguese": "pt",
}

func languageCode(l string) string {
	if code, ok := languageNames[strings.ToLower(l)]; ok {
		return code
	}
	tag, err := language.Parse(l)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.String()
}

// Role classifies a company.
type Role int

const (
	RoleStudio Role = iota
	RoleNetwork
	RoleDistributor
)

// companies is the network, studio and distributor table. Names are
// lowercase.
var companies = map[string]Role{
	"hbo":                                RoleNetwork,
	"hbo max":                            RoleNetwork,
	"amc":                                RoleNetwork,
	"netflix":                            RoleNetwork,
	"hulu":                               RoleNetwork,
	"abc":                                RoleNetwork,
	"nbc":                                RoleNetwork,
	"cbs":                                RoleNetwork,
	"fox":                                RoleNetwork,
	"the cw":                             RoleNetwork,
	"bbc one":                            RoleNetwork,
	"bbc two":                            RoleNetwork,
	"itv":                                RoleNetwork,
	"showtime":                           RoleNetwork,
	"starz":                              RoleNetwork,
	"fx":                                 RoleNetwork,
	"prime video":                        RoleNetwork,
	"amazon prime video":                 RoleNetwork,
	"apple tv+":                          RoleNetwork,
	"disney+":                            RoleNetwork,
	"paramount+":                         RoleNetwork,
	"peacock":                            RoleNetwork,
	"adult swim":                         RoleNetwork,
	"cartoon network":                    RoleNetwork,
	"tokyo mx":                           RoleNetwork,
	"warner bros. pictures":              RoleStudio,
	"warner bros. television":            RoleStudio,
	"sony pictures television":           RoleStudio,
	"universal pictures":                 RoleStudio,
	"20th century fox":                   RoleStudio,
	"paramount pictures":                 RoleStudio,
	"walt disney pictures":               RoleStudio,
	"high bridge productions":            RoleStudio,
	"gran via productions":               RoleStudio,
	"village roadshow pictures":          RoleStudio,
	"warner bros. pictures distribution": RoleDistributor,
	"sony pictures releasing":            RoleDistributor,
	"buena vista":                        RoleDistributor,
	"roadshow entertainment":             RoleDistributor,
	"united international pictures":      RoleDistributor,
}

// Classify returns the role of a company. Unknown names are studios.
func Classify(name string) Role {
	if r, ok := companies[strings.ToLower(strings.TrimSpace(name))]; ok {
		return r
	}
	return RoleStudio
}

// Companies separates merged studio and network lists with the company
// table: known networks listed as studios move to the networks, known
// studios listed as networks move to the studios, and distributors are
// dropped unless nothing else remains. Unknown names keep the list they
// came from.
func Companies(studios, networks []string) ([]string, []string) {
	var outStudios, outNetworks, distributors []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		switch Classify(name) {
		case RoleNetwork:
			outNetworks = union(outNetworks, []string{name})
		case RoleDistributor:
			distributors = union(distributors, []string{name})
		default:
			outStudios = union(outStudios, []string{name})
		}
	}
	for _, n := range networks {
		n = strings.TrimSpace(n)
		if _, known := companies[strings.ToLower(n)]; n != "" && !known {
			outNetworks = union(outNetworks, []string{n})
			continue
		}
		add(n)
	}
	for _, s := range studios {
		add(s)
	}
	if len(outStudios) == 0 {
		outStudios = distributors
	}
	sortNetworks(outNetworks)
	return outStudios, outNetworks
}

// sortNetworks orders networks reverse-alphabetically.
func sortNetworks(networks []string) {
	sort.SliceStable(networks, func(i, j int) bool {
		return strings.ToLower(networks[i]) > strings.ToLower(networks[j])
	})
}
