package report

import (
	"fmt"
	"strings"
)

// Focus area names accepted by PromptFor.
const (
	AreaLogging       = "logging"
	AreaAvailability  = "availability"
	AreaErrorHandling = "error_handling"
)

// AllAreas lists every focus area in report order.
var AllAreas = []string{AreaLogging, AreaAvailability, AreaErrorHandling}

// analysisPrompt frames one focus-area checklist with the codebase
// context and the file listing the model can cite indices from.
const analysisPrompt = `For the project %s:

Codebase Context:
%s

Files in the project:
%s

%s

Format your detailed analysis as Markdown with proper headings, bullet points, and code examples.
Be specific about files and line numbers when referencing code.
Note which best practices are implemented, which are missing, and make specific recommendations.`

// summaryPrompt asks for the executive summary over a finished report.
const summaryPrompt = `Based on the following detailed code quality analysis for the project '%s',
create a concise executive summary highlighting the key findings, strengths, weaknesses,
and most critical recommendations.

Analysis Details:
%s

Format your response as a Markdown executive summary with 3-5 paragraphs.`

// PromptFor maps focus areas to their checklist prompts. Unknown area
// names are ignored. When all three areas are requested the result
// collapses to a single "combined" entry so the analysis runs as one
// pass instead of three.
func PromptFor(areas []string) map[string]string {
	prompts := make(map[string]string)
	for _, area := range areas {
		switch area {
		case AreaLogging:
			prompts[AreaLogging] = LoggingPrompt
		case AreaAvailability:
			prompts[AreaAvailability] = AvailabilityPrompt
		case AreaErrorHandling:
			prompts[AreaErrorHandling] = ErrorHandlingPrompt
		}
	}
	if len(prompts) == len(AllAreas) {
		return map[string]string{"combined": CombinedPrompt}
	}
	return prompts
}

// AnalysisPrompt renders the full chat prompt for one focus area.
func AnalysisPrompt(project, context, listing, areaPrompt string) string {
	return fmt.Sprintf(analysisPrompt, project, context, listing, areaPrompt)
}

// Assemble joins per-area analysis sections into the report body. A
// "combined" section is used verbatim; otherwise the area sections
// appear under fixed headings in AllAreas order regardless of map
// iteration. A non-empty archSection is appended under an
// "Architecture Overview" heading.
func Assemble(project string, sections map[string]string, archSection string) string {
	body := "# Code Quality Analysis: " + project + "\n\n"

	if combined, ok := sections["combined"]; ok {
		body += combined
	} else {
		if s, ok := sections[AreaLogging]; ok {
			body += "## Logging Analysis\n\n" + s + "\n\n"
		}
		if s, ok := sections[AreaAvailability]; ok {
			body += "## Availability Analysis\n\n" + s + "\n\n"
		}
		if s, ok := sections[AreaErrorHandling]; ok {
			body += "## Error Handling Analysis\n\n" + s + "\n\n"
		}
	}

	if archSection != "" {
		body = strings.TrimRight(body, "\n") + "\n\n## Architecture Overview\n\n" +
			strings.TrimRight(archSection, "\n") + "\n"
	}
	return body
}

// SummaryPrompt renders the executive summary request for a report.
func SummaryPrompt(project, reportBody string) string {
	return fmt.Sprintf(summaryPrompt, project, reportBody)
}

// PrependSummary puts the executive summary ahead of the report body.
func PrependSummary(reportBody, summary string) string {
	return "# Executive Summary\n\n" + summary + "\n\n" + reportBody
}
