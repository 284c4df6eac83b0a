package ktportal

import (
	"regexp"
	"strconv"
	"strings"
)

var kcalLineRegex = regexp.MustCompile(`(?i)^([\d,]+)\s*kcal\b`)
var priceLineRegex = regexp.MustCompile(`^([\d,]+)\s*원`)

// splitDishBlock separates the food-item lines of a DISH text block
// from its trailing annotation lines (lines ending in a kcal or 원
// suffix). Item order is preserved; annotation values are returned so
// they can back-fill missing PRICE/KCAL columns.
func splitDishBlock(text string) (items []string, price, kcal int) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	end := len(lines)
	for end > 0 {
		line := lines[end-1]
		if m := kcalLineRegex.FindStringSubmatch(line); m != nil {
			kcal = safeInt(m[1])
			end--
			continue
		}
		if m := priceLineRegex.FindStringSubmatch(line); m != nil {
			price = safeInt(m[1])
			end--
			continue
		}
		break
	}

	return lines[:end], price, kcal
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// cleanText collapses runs of whitespace in scalar column values.
// Never applied to DISH, whose newlines are significant.
func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// safeInt converts the portal's loose numeric strings ("5,000", "-",
// "NULL", "") into ints, defaulting to zero.
func safeInt(value string) int {
	value = strings.TrimSpace(value)
	switch value {
	case "", "-", "NULL", "null", "None":
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
