package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Row is one scraped table row.
type Row struct {
	Company  string
	Role     string
	Status   string
	Location string
}

// Complete reports whether the row carries the three fields a sync needs.
func (r Row) Complete() bool {
	return r.Company != "" && r.Role != "" && r.Status != ""
}

// ExtractRows returns every row matched by sel.Row in document order. Each field is the
// whitespace-collapsed text of the first element matching its selector inside the row,
// or empty when nothing matches.
func ExtractRows(html string, sel Selectors) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &ExtractionError{
			Message: "failed to parse HTML",
			Cause:   err,
		}
	}

	rows := make([]Row, 0)
	doc.Find(sel.Row).Each(func(_ int, s *goquery.Selection) {
		rows = append(rows, Row{
			Company:  fieldText(s, sel.Company),
			Role:     fieldText(s, sel.Role),
			Status:   fieldText(s, sel.Status),
			Location: fieldText(s, sel.Location),
		})
	})
	return rows, nil
}

func fieldText(row *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	match := row.Find(selector).First()
	if match.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(match.Text()), " ")
}
