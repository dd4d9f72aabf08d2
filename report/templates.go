package report

import "github.com/twetter99/afluencia360/schema"

// DefaultTemplates are seeded at startup. Existing templates are never
// overwritten, operators may edit them in place.
func DefaultTemplates() []schema.ReportTemplate {
	branding := map[string]string{"logo": "CRTM", "client": "Afluencia360"}
	return []schema.ReportTemplate{
		{
			ID:         "tpl-stop-standard",
			Name:       "Informe por Marquesina - Estándar",
			ReportType: schema.ReportTypeStop,
			Sections:   []string{"kpis", "dailyTrend", "gender", "age", "alerts", "notes"},
			Branding:   branding,
			Formats:    []string{"pdf", "excel"},
		},
		{
			ID:         "tpl-multi-standard",
			Name:       "Informe Multi-Marquesina - Estándar",
			ReportType: schema.ReportTypeMulti,
			Sections:   []string{"kpis", "ranking", "comparison", "gender", "age", "alertsByType"},
			Branding:   branding,
			Formats:    []string{"pdf", "excel"},
		},
		{
			ID:         "tpl-exec-standard",
			Name:       "Resumen Ejecutivo - Estándar",
			ReportType: schema.ReportTypeExecutive,
			Sections:   []string{"insights", "growthDrop", "criticalAlerts", "recommendations"},
			Branding:   branding,
			Formats:    []string{"pdf", "excel"},
		},
	}
}
