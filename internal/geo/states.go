// Package geo maps state directory slugs to display names and back.
//
// The warehouse stores the raw lowercase hyphen-joined slug exactly as it
// appears in the source tree; mapping to display names happens at
// presentation time only.
package geo

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stateNames maps source-tree slugs to official display names.
var stateNames = map[string]string{
	"andaman-&-nicobar-islands":            "Andaman & Nicobar",
	"andhra-pradesh":                       "Andhra Pradesh",
	"arunachal-pradesh":                    "Arunachal Pradesh",
	"assam":                                "Assam",
	"bihar":                                "Bihar",
	"chandigarh":                           "Chandigarh",
	"chhattisgarh":                         "Chhattisgarh",
	"dadra-&-nagar-haveli-&-daman-&-diu":   "Dadra and Nagar Haveli and Daman and Diu",
	"delhi":                                "Delhi",
	"goa":                                  "Goa",
	"gujarat":                              "Gujarat",
	"haryana":                              "Haryana",
	"himachal-pradesh":                     "Himachal Pradesh",
	"jammu-&-kashmir":                      "Jammu & Kashmir",
	"jharkhand":                            "Jharkhand",
	"karnataka":                            "Karnataka",
	"kerala":                               "Kerala",
	"ladakh":                               "Ladakh",
	"lakshadweep":                          "Lakshadweep",
	"madhya-pradesh":                       "Madhya Pradesh",
	"maharashtra":                          "Maharashtra",
	"manipur":                              "Manipur",
	"meghalaya":                            "Meghalaya",
	"mizoram":                              "Mizoram",
	"nagaland":                             "Nagaland",
	"odisha":                               "Odisha",
	"puducherry":                           "Puducherry",
	"punjab":                               "Punjab",
	"rajasthan":                            "Rajasthan",
	"sikkim":                               "Sikkim",
	"tamil-nadu":                           "Tamil Nadu",
	"telangana":                            "Telangana",
	"tripura":                              "Tripura",
	"uttar-pradesh":                        "Uttar Pradesh",
	"uttarakhand":                          "Uttarakhand",
	"west-bengal":                          "West Bengal",
}

var titleCaser = cases.Title(language.English)

// DisplayName returns the display name for a state slug. Unknown slugs are
// title-cased with hyphens replaced by spaces so new territories still render
// readably.
func DisplayName(slug string) string {
	if name, ok := stateNames[slug]; ok {
		return name
	}
	return titleCaser.String(strings.ReplaceAll(slug, "-", " "))
}

// Slug converts a display name back to the directory slug used by the source
// tree and stored in the warehouse.
func Slug(displayName string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(displayName)), " ", "-")
}

// Slugs returns all known state slugs in map order.
func Slugs() []string {
	out := make([]string, 0, len(stateNames))
	for slug := range stateNames {
		out = append(out, slug)
	}
	return out
}
