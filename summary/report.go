package summary

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/glee-cse/glee"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Report is the serializable form of a summary.
type Report struct {
	Function    string       `yaml:"function"`
	Fingerprint string       `yaml:"fingerprint"`
	Args        []string     `yaml:"args,omitempty"`
	Globals     []string     `yaml:"globals,omitempty"`
	Context     string       `yaml:"context"`
	NormalPaths []PathReport `yaml:"normal_paths"`
	ErrorPaths  []PathReport `yaml:"error_paths"`
}

// PathReport is the serializable form of a single path.
type PathReport struct {
	Precondition []string         `yaml:"precondition"`
	Return       string           `yaml:"return,omitempty"`
	Reason       glee.ErrorReason `yaml:"reason,omitempty"`
	Message      string           `yaml:"message,omitempty"`
	Effects      []EffectReport   `yaml:"effects,omitempty"`
}

// EffectReport is the serializable form of an effect.
type EffectReport struct {
	Target   string   `yaml:"target"`
	Contents string   `yaml:"contents,omitempty"`
	Writes   []string `yaml:"writes,omitempty"`
}

// NewReport converts s into a report.
func NewReport(s *Summary) *Report {
	r := &Report{
		Function:    s.Function().String(),
		Fingerprint: strconv.FormatUint(s.Fingerprint(), 16),
		Context:     s.Context().String(),
		NormalPaths: []PathReport{},
		ErrorPaths:  []PathReport{},
	}
	for _, arg := range s.Args() {
		r.Args = append(r.Args, fmt.Sprintf("%s=%s", arg.Param.Name(), arg.Array))
	}
	for _, g := range s.Globals() {
		r.Globals = append(r.Globals, fmt.Sprintf("%s=%s", g.Global.Name(), g.Array))
	}

	for _, p := range s.NormalPaths() {
		pr := PathReport{Precondition: exprStrings(p.Precondition), Effects: effectReports(p.Effects)}
		if !p.Void {
			pr.Return = p.Return.String()
		}
		r.NormalPaths = append(r.NormalPaths, pr)
	}
	for _, p := range s.ErrorPaths() {
		r.ErrorPaths = append(r.ErrorPaths, PathReport{
			Precondition: exprStrings(p.Precondition),
			Reason:       p.Reason,
			Message:      p.Message,
			Effects:      effectReports(p.Effects),
		})
	}
	return r
}

// WriteYAML encodes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return enc.Close()
}

// WriteTable renders one row per path of s.
func WriteTable(w io.Writer, s *Summary) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Precondition", "Outcome", "Effects"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)

	for _, p := range s.NormalPaths() {
		outcome := "return"
		if !p.Void {
			outcome = "return " + p.Return.String()
		}
		table.Append([]string{"normal", strings.Join(exprStrings(p.Precondition), " && "), outcome, effectTargets(p.Effects)})
	}
	for _, p := range s.ErrorPaths() {
		table.Append([]string{"error", strings.Join(exprStrings(p.Precondition), " && "), p.Reason.String(), effectTargets(p.Effects)})
	}

	table.SetFooter([]string{
		s.Function().String(),
		"",
		fmt.Sprintf("%d normal", len(s.NormalPaths())),
		fmt.Sprintf("%d error", len(s.ErrorPaths())),
	})
	table.Render()
	return nil
}

func exprStrings(exprs []glee.Expr) []string {
	a := make([]string, len(exprs))
	for i, expr := range exprs {
		a[i] = expr.String()
	}
	return a
}

func effectReports(effects []Effect) []EffectReport {
	var a []EffectReport
	for _, e := range effects {
		er := EffectReport{Target: e.Target()}
		if e.Contents != nil {
			er.Contents = e.Contents.String()
		}
		for _, w := range e.Writes {
			er.Writes = append(er.Writes, fmt.Sprintf("[%s]=%s", w.Offset, w.Value))
		}
		a = append(a, er)
	}
	return a
}

func effectTargets(effects []Effect) string {
	a := make([]string, len(effects))
	for i, e := range effects {
		a[i] = e.Target()
	}
	return strings.Join(a, ", ")
}
