package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pavelanni/mrtutor/internal/i18n"
)

// Color is the emphasis color of a substituted value.
type Color string

const (
	Red    Color = "red"
	Orange Color = "orange"
	Blue   Color = "blue"
	Green  Color = "green"
)

// slot says which substitution fills a placeholder and how it is shown.
type slot struct {
	sub   int
	color Color
}

// placeholders maps item and message key to the body's slots {{.S0}},
// {{.S1}}, ... in order. Keys not listed take no substitutions.
var placeholders = map[string]map[string][]slot{
	ItemRatedRValue: {
		"power_ten": {{0, Blue}, {1, Blue}},
		"unit":      {{0, Red}},
	},
	ItemRatedTValue: {
		"incorrect": {{1, Red}, {0, Blue}},
	},
	ItemMeasuredRValue: {
		"incomplete": {{0, Blue}, {1, Red}},
		"power_ten":  {{0, Orange}, {1, Orange}, {2, Blue}, {3, Blue}, {4, Blue}},
		"unit":       {{0, Red}},
	},
	ItemKnobSetting: {
		"suboptimal": {{1, Orange}, {0, Blue}},
	},
	ItemTRangeValue: {
		"correct":    {{1, Blue}, {0, Blue}},
		"rounded":    {{1, Blue}, {0, Blue}},
		"inaccurate": {{1, Red}, {0, Blue}},
		"wrong":      {{1, Red}, {0, Blue}},
	},
	ItemWithinTolerance: {
		"correct":   {{0, Green}, {1, Blue}, {2, Blue}, {3, Green}, {4, Green}},
		"incorrect": {{0, Green}, {1, Blue}, {2, Blue}, {3, Green}, {4, Green}},
	},
	ItemReadingTime: {
		"slow": {{0, Red}},
	},
	ItemMeasuringTime: {
		"slow": {{0, Red}},
	},
}

// emphasize wraps v in the markup the reporting layer renders as colored
// italics.
func emphasize(v any, c Color) string {
	return fmt.Sprintf(`<font color="%s"><i>%v</i></font>`, c, v)
}

// render looks up the title and body for item and key and fills the body's
// slots from subs.
func render(ctx context.Context, item, key string, subs []any) Message {
	prefix := item + "_" + key
	data := map[string]any{}
	for i, s := range placeholders[item][key] {
		var v any = ""
		if s.sub < len(subs) {
			v = subs[s.sub]
		} else {
			slog.Warn("feedback substitution missing", "item", item, "key", key, "sub", s.sub)
		}
		data["S"+strconv.Itoa(i)] = emphasize(v, s.color)
	}
	return Message{
		Key:   key,
		Title: i18n.T(ctx, prefix+"_title"),
		Body:  i18n.Td(ctx, prefix+"_body", data),
	}
}
