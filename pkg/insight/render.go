package insight

import (
	"fmt"
	"io"
	"strings"

	md "github.com/nao1215/markdown"
)

// Text renders an insight as plain text.
func Text(ins Insight) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Automated Insight for %s: %s\n", ins.Gene, ins.Headline)
	for _, f := range ins.Findings {
		fmt.Fprintf(&b, "\n%s vs. %s [%s]\n", ins.Target.Label(), f.Reference.Label(), f.Trend)
		for _, s := range f.Sentences {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	if ins.Policy != "" {
		fmt.Fprintf(&b, "\nDecision rule: %s\n", ins.Policy)
	}
	return b.String()
}

// Markdown writes an insight report as markdown.
func Markdown(w io.Writer, ins Insight) error {
	doc := md.NewMarkdown(w).
		H2(fmt.Sprintf("Automated Insight for %s", ins.Gene)).
		PlainText(md.Bold(ins.Headline)).
		LF()

	rows := make([][]string, 0, len(ins.Findings))
	for _, f := range ins.Findings {
		rows = append(rows, []string{
			f.Reference.Label(),
			fmt.Sprintf("%.2f", f.TargetMean),
			fmt.Sprintf("%.2f", f.ReferenceMean),
			string(f.Trend),
		})
	}
	doc.Table(md.TableSet{
		Header: []string{"Reference", ins.Target.Label() + " mean", "Reference mean", "Trend"},
		Rows:   rows,
	})

	for _, f := range ins.Findings {
		doc.H3(fmt.Sprintf("%s vs. %s", ins.Target.Short(), ReferencePhrase(f.Reference))).
			BulletList(f.Sentences...)
	}

	if ins.Policy != "" {
		doc.LF().PlainText(md.Italic("Decision rule: " + ins.Policy))
	}
	return doc.Build()
}

// MarkdownString renders an insight report to a string.
func MarkdownString(ins Insight) (string, error) {
	var b strings.Builder
	if err := Markdown(&b, ins); err != nil {
		return "", err
	}
	return b.String(), nil
}
