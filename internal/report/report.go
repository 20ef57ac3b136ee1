// Package report renders the standalone HTML compliance report: a chapter and
// policy navigator with findings, variable assignments, and rule evidence,
// side by side with the embedded specification and proposal PDFs.
package report

import (
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/findings"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

//go:embed report.html.tmpl
var templateFS embed.FS

// maxDescriptionChars bounds the policy description shown in the navigator.
const maxDescriptionChars = 200

// Chapter is one chapter's compliance results for the report.
type Chapter struct {
	Title    string
	Policies []*types.ResolvedPolicy
}

// documentView is an embedded PDF shown in a viewer tab.
type documentView struct {
	Name string
	Data template.URL
}

type findingView struct {
	Severity string
	Insight  template.HTML
}

type variableView struct {
	Name        string
	Value       string
	Description string
}

type ruleView struct {
	ID                  string
	AlternateExpression string
}

type policyView struct {
	Name        string
	Description string
	Findings    []findingView
	Assessment  string
	Variables   []variableView
	Rules       []ruleView
}

type chapterView struct {
	Title    string
	Policies []policyView
}

type reportData struct {
	Title     string
	Chapters  []chapterView
	Proposals []documentView
	Spec      documentView
	// LastTab is the index of the specification tab, one past the proposals.
	LastTab int
}

// Generate writes the HTML compliance report for a specification and its
// per-chapter resolved policies. The specification and proposal PDFs are
// embedded base64 so the report is a single self-contained file.
func Generate(w io.Writer, title, specPath string, proposalPaths []string, chapters []Chapter) error {
	spec, err := embedPDF(specPath)
	if err != nil {
		return err
	}
	proposals := make([]documentView, 0, len(proposalPaths))
	for _, p := range proposalPaths {
		doc, err := embedPDF(p)
		if err != nil {
			return err
		}
		proposals = append(proposals, doc)
	}

	data := reportData{
		Title:     title,
		Proposals: proposals,
		Spec:      spec,
		LastTab:   len(proposals),
	}
	for _, ch := range chapters {
		data.Chapters = append(data.Chapters, chapterView{
			Title:    truncate(ch.Title, 60),
			Policies: policyViews(ch.Policies),
		})
	}

	tmpl, err := template.ParseFS(templateFS, "report.html.tmpl")
	if err != nil {
		return fmt.Errorf("report: failed to parse template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("report: failed to render: %w", err)
	}
	return nil
}

// WriteFile renders the report to path.
func WriteFile(path, title, specPath string, proposalPaths []string, chapters []Chapter) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: cannot create %s: %w", path, err)
	}
	defer f.Close()
	return Generate(f, title, specPath, proposalPaths, chapters)
}

func policyViews(policies []*types.ResolvedPolicy) []policyView {
	views := make([]policyView, 0, len(policies))
	for _, rp := range policies {
		pv := policyView{
			Name:        rp.Name,
			Description: truncate(rp.Description, maxDescriptionChars),
		}

		for _, f := range findings.FromAssessment(rp.Assessment, nil) {
			pv.Findings = append(pv.Findings, findingView{
				Severity: string(findings.SeverityOf(f)),
				Insight:  insightHTML(findings.Insight(f, rp)),
			})
		}

		if len(rp.Assessment) > 0 {
			if raw, err := json.MarshalIndent(rp.Assessment, "", "  "); err == nil {
				pv.Assessment = string(raw)
			}
		}

		for _, v := range rp.Variables {
			if v.Value == nil {
				continue
			}
			pv.Variables = append(pv.Variables, variableView{
				Name:        v.Name,
				Value:       *v.Value,
				Description: v.Description,
			})
		}

		if len(pv.Variables) > 0 {
			for _, r := range rp.Rules {
				pv.Rules = append(pv.Rules, ruleView{
					ID:                  r.ID,
					AlternateExpression: r.AlternateExpression,
				})
			}
		}

		views = append(views, pv)
	}
	return views
}

// insightHTML converts the limited markup used by finding insights (bold
// spans and line breaks) into safe HTML. The input is escaped first so only
// the converter introduces tags.
func insightHTML(insight string) template.HTML {
	escaped := template.HTMLEscapeString(insight)

	var sb strings.Builder
	open := false
	for {
		i := strings.Index(escaped, "**")
		if i < 0 {
			sb.WriteString(escaped)
			break
		}
		sb.WriteString(escaped[:i])
		if open {
			sb.WriteString("</strong>")
		} else {
			sb.WriteString("<strong>")
		}
		open = !open
		escaped = escaped[i+2:]
	}
	if open {
		sb.WriteString("</strong>")
	}

	return template.HTML(strings.ReplaceAll(sb.String(), "\n", "<br>"))
}

func embedPDF(path string) (documentView, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return documentView{}, fmt.Errorf("report: cannot read %s: %w", path, err)
	}
	return documentView{
		Name: filepath.Base(path),
		Data: template.URL("data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data)),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
