package mlclient

import (
	"regexp"
	"strconv"
)

var percentagePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// timeframePatterns are tried in order; the first that matches anywhere wins
var timeframePatterns = []struct {
	pattern *regexp.Regexp
	unit    string
	value   string
}{
	{pattern: regexp.MustCompile(`(?i)(\d+)\s*hours?`), unit: "hours"},
	{pattern: regexp.MustCompile(`(?i)(\d+)\s*days?`), unit: "days"},
	{pattern: regexp.MustCompile(`(?i)(\d+)\s*weeks?`), unit: "weeks"},
	{pattern: regexp.MustCompile(`(?i)(\d+)\s*months?`), unit: "months"},
	{pattern: regexp.MustCompile(`(?i)daily`), value: "daily"},
	{pattern: regexp.MustCompile(`(?i)weekly`), value: "weekly"},
	{pattern: regexp.MustCompile(`(?i)monthly`), value: "monthly"},
}

// ExtractReturns returns the first percentage figure in text
func ExtractReturns(text string) *float64 {
	m := percentagePattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// ExtractTimeframe returns the first recognizable duration phrase in text,
// normalized to "<n> <unit>" or one of daily, weekly, monthly
func ExtractTimeframe(text string) *string {
	for _, tf := range timeframePatterns {
		m := tf.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := tf.value
		if v == "" {
			v = m[1] + " " + tf.unit
		}
		return &v
	}
	return nil
}
