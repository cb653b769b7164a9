package reporter

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Capacity Forecast - {{.Source}}</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, Arial, sans-serif; background: #f5f7fa; color: #333; padding: 20px; }
        .container { max-width: 1100px; margin: 0 auto; background: white; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.1); }
        .header { background: linear-gradient(135deg, #326ce5 0%, #1a4d8f 100%); color: white; padding: 30px 40px; border-radius: 8px 8px 0 0; }
        section { padding: 20px 40px; }
        table { width: 100%; border-collapse: collapse; margin-top: 10px; }
        th, td { padding: 8px 12px; border-bottom: 1px solid #e1e4e8; text-align: left; }
        th { background: #f6f8fa; }
        .CRITICAL { color: #c62828; font-weight: bold; }
        .WARNING { color: #ef6c00; font-weight: bold; }
        .spark { font-family: monospace; }
    </style>
</head>
<body>
<div class="container">
    <div class="header">
        <h1>Capacity Forecast</h1>
        <p>Source {{.Source}} &middot; {{.Horizon}} step horizon &middot; generated {{.GeneratedAt.Format "2006-01-02 15:04:05"}}</p>
        <p>{{.AlertCount}} alerts ({{.CriticalCount}} critical)</p>
    </div>
    {{range .Metrics}}
    <section>
        <h2>{{upper (print .Metric)}} <small>({{.Unit}})</small></h2>
        {{with .Summary}}
        <table>
            <tr><th>Points</th><th>Real</th><th>Latest</th><th>Average</th><th>P95</th><th>Peak</th><th>Pattern</th><th>Trend</th></tr>
            <tr><td>{{.Count}}</td><td>{{.RealCount}}</td><td>{{num .Latest}}</td><td>{{num .Percentiles.Average}}</td><td>{{num .Percentiles.P95}}</td><td>{{num .Percentiles.Peak}}</td><td>{{.Pattern.Type}}</td><td>{{.Trend.Direction}}</td></tr>
        </table>
        {{end}}
        <p>Model: {{.Model}}{{if .Fallback}} (via {{.Fallback}}){{end}}</p>
        <p class="spark">{{range $i, $v := .Predictions}}{{if $i}} {{end}}{{num $v}}{{end}}</p>
        {{range .Alerts}}<p class="{{.Severity}}">[{{.Severity}}] {{.Message}}</p>{{end}}
    </section>
    {{end}}
</div>
</body>
</html>
`

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"upper": strings.ToUpper,
	"num":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(htmlTemplate))

// GenerateHTML writes a standalone HTML report
func GenerateHTML(report *Report, w io.Writer) error {
	if err := htmlReport.Execute(w, report); err != nil {
		return fmt.Errorf("failed to render HTML report: %w", err)
	}
	return nil
}
