package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// RenderDigestEmail renders the daily admin summary: totals per status, the
// last week's submissions and the riskiest areas
func RenderDigestEmail(subject string, o models.Overview, weekly []models.DailyCount, areas []models.AreaRisk) string {
	var b strings.Builder

	b.WriteString("<h2>Reports</h2><table>")
	rows := []struct {
		label string
		n     int64
	}{
		{"Total", o.TotalReports},
		{"Pending review", o.PendingReports},
		{"Valid", o.ValidReports},
		{"In progress", o.InProgressReports},
		{"Cleared", o.ClearedReports},
		{"Invalid", o.InvalidReports},
		{"Reporters", o.TotalUsers},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td></tr>", r.label, r.n)
	}
	b.WriteString("</table>")

	if len(weekly) > 0 {
		b.WriteString("<h2>Last 7 days</h2><table>")
		for _, d := range weekly {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td></tr>", html.EscapeString(d.Date), d.Count)
		}
		b.WriteString("</table>")
	}

	if len(areas) > 0 {
		b.WriteString("<h2>Areas at risk</h2><table><tr><th>Area</th><th>Reports</th><th>Risk</th></tr>")
		for _, a := range areas {
			fmt.Fprintf(&b, `<tr><td>%s</td><td>%d</td><td class="risk-%s">%s (%d)</td></tr>`,
				html.EscapeString(AreaLabel(a.Location)), a.ReportCount, a.RiskLevel, a.RiskLevel, a.RiskScore)
		}
		b.WriteString("</table>")
	}

	return renderLayout(subject, b.String())
}

// AreaLabel names a location by its address, falling back to coordinates
func AreaLabel(l models.Location) string {
	if l.Address != "" {
		return l.Address
	}
	if l.HasCoordinates() {
		return fmt.Sprintf("%.4f, %.4f", *l.Lat, *l.Lng)
	}
	return "unknown"
}
