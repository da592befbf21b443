package splunk

import (
	"fmt"
	"strings"

	"github.com/evgeny-myasishchev/statements-connector/pkg/checkpoint"
)

var quoteReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(value string) string {
	return `"` + quoteReplacer.Replace(value) + `"`
}

// WatermarkQuery returns a search that finds a latest indexed timestamp of a feed.
// Results in a single row with 0 timestamp if nothing is indexed
func WatermarkQuery(filter checkpoint.Filter) string {
	return fmt.Sprintf(
		`| tstats latest(_time) as timestamp where index=%v sourcetype=%v source=%v`+
			` | append [| makeresults ]`+
			` | eval timestamp = if(isnotnull(timestamp), timestamp, 0)`+
			` | stats max(timestamp) as timestamp`,
		quote(filter.Index), quote(filter.SourceType), quote(filter.Source),
	)
}
