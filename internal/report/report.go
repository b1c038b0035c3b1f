// Package report renders a graded try as plain text for the terminal.
package report

import (
	"context"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/pavelanni/mrtutor/internal/feedback"
	"github.com/pavelanni/mrtutor/internal/i18n"
	"github.com/pavelanni/mrtutor/internal/measure"
	"github.com/pavelanni/mrtutor/internal/model"
)

var (
	paraRE = regexp.MustCompile(`</p>\s*<p>`)
	tagRE  = regexp.MustCompile(`<[^>]*>`)
)

// PlainText drops the markup from a feedback body. Paragraphs are joined
// with a space.
func PlainText(s string) string {
	s = paraRE.ReplaceAllString(s, " ")
	return html.UnescapeString(tagRE.ReplaceAllString(s, ""))
}

// Write prints the report of try number try. s may be nil when only the
// feedback is known.
func Write(ctx context.Context, w io.Writer, try int, s *model.Session, fb *feedback.Feedback) error {
	sec := s.Section()
	var b strings.Builder

	fmt.Fprintln(&b, i18n.Td(ctx, "report_title", map[string]any{"Try": try}))
	if s != nil {
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		if s.LearnerID != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", i18n.T(ctx, "report_learner"), s.LearnerID)
		}
		if s.ID != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", i18n.T(ctx, "report_session"), s.ID)
		}
		if sec != nil {
			fmt.Fprintf(tw, "%s:\t%s\n", i18n.T(ctx, "report_resistor"), i18n.Td(ctx, "report_bands", map[string]any{
				"Count":     sec.NumBands,
				"Nominal":   measure.ResString(sec.NominalResistance),
				"Tolerance": measure.PctString(sec.Tolerance),
				"Displayed": measure.ResString(sec.DisplayedResistance),
			}))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\t%s\t%s\n",
		i18n.T(ctx, "report_your_answer"), i18n.T(ctx, "report_correct_answer"), i18n.T(ctx, "report_points"))
	for _, cat := range fb.Root.Children {
		fmt.Fprintf(tw, "%s\t\t\t%d/%d\n", i18n.T(ctx, "category_"+cat.Name), cat.SumPoints(), cat.SumMaxPoints())
		for _, it := range cat.Children {
			yours, correct := answers(ctx, sec, fb, it.Name)
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%d/%d\n", i18n.T(ctx, "item_"+it.Name), yours, correct, it.Points, it.MaxPoints)
		}
	}
	fmt.Fprintf(tw, "%s\t\t\t%d/%d\n", i18n.T(ctx, "report_total"), fb.Points(), fb.MaxPoints())
	if err := tw.Flush(); err != nil {
		return err
	}

	b.WriteString("\n")
	fmt.Fprintln(&b, i18n.Td(ctx, "report_dial", map[string]any{
		"Initial": fb.InitialDialSetting.Label(),
		"Submit":  fb.SubmitDialSetting.Label(),
		"Optimal": fb.OptimalDialSetting.Label(),
	}))

	for _, it := range fb.Root.Leaves() {
		for _, m := range it.Feedbacks {
			fmt.Fprintf(&b, "\n[%s] %s\n  %s\n", i18n.T(ctx, "item_"+it.Name), m.Title, PlainText(m.Body))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// answers returns the learner's and the expected answer for the rubric
// item, or two empty strings for items that grade actions.
func answers(ctx context.Context, sec *model.Section, fb *feedback.Feedback, item string) (string, string) {
	var q *model.Question
	var correct string
	switch item {
	case feedback.ItemRatedRValue:
		if sec != nil {
			q, correct = sec.Question(model.QuestionRatedResistance), measure.ResString(sec.NominalResistance)
		}
	case feedback.ItemRatedTValue:
		if sec != nil {
			q, correct = sec.Question(model.QuestionRatedTolerance), measure.PctString(sec.Tolerance)
		}
	case feedback.ItemMeasuredRValue:
		if sec != nil {
			q, correct = sec.Question(model.QuestionMeasuredResistance), measure.ResString(sec.DisplayedResistance)
		}
	case feedback.ItemTRangeValue:
		if sec != nil {
			q = sec.Question(model.QuestionMeasuredTolerance)
		}
		if r := fb.ExpectedRange; r[1] > 0 {
			correct = measure.ResString(r[0]) + " - " + measure.ResString(r[1])
		}
	case feedback.ItemWithinTolerance:
		if sec != nil {
			q = sec.Question(model.QuestionWithinTolerance)
		}
		correct = fb.ExpectedWithin
	default:
		return "", ""
	}
	return answerText(ctx, q), correct
}

func answerText(ctx context.Context, q *model.Question) string {
	if q == nil || q.AnswerAt(0) == "" {
		return i18n.T(ctx, "report_no_answer")
	}
	parts := make([]string, 0, len(q.Answer))
	for i, a := range q.Answer {
		if u := q.UnitAt(i); u != "" {
			if u == "%" {
				a += " %"
			} else {
				a += " " + measure.CanonicalUnit(u)
			}
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " - ")
}
