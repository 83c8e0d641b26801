package corpus

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// knownCompanies are filename markers of the tracked competitors, checked in order.
var knownCompanies = []string{
	"accenture",
	"capgemini",
	"devoteam",
	"ey-japan",
	"fis",
	"groupe-one-point",
	"inetum",
	"talan",
	"wavestone",
}

var titleCaser = cases.Title(language.Und)

// CompanyFromFilename derives the company a report belongs to from its file name.
// Known competitors are matched by marker, otherwise the first underscore
// separated segment of the name is title cased.
func CompanyFromFilename(path string) string {
	base := filepath.Base(path)
	name := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
	for _, marker := range knownCompanies {
		if strings.Contains(name, marker) {
			return titleCaser.String(marker)
		}
	}

	segment := strings.TrimSpace(strings.SplitN(name, "_", 2)[0])
	if segment == "" {
		return "Unknown"
	}
	return titleCaser.String(segment)
}
