package cmd

import (
	"fmt"
	"os"

	"db-mirror/internal/engine"

	"gopkg.in/yaml.v3"
)

type reportFile struct {
	Outcome  string          `yaml:"outcome"`
	ExitCode int             `yaml:"exit_code"`
	Message  string          `yaml:"message"`
	Copied   []copiedEntry   `yaml:"copied,omitempty"`
	Tables   []verifiedEntry `yaml:"tables"`
	Skipped  []string        `yaml:"skipped,omitempty"`
	Findings []findingEntry  `yaml:"findings,omitempty"`
}

type copiedEntry struct {
	Table  string `yaml:"table"`
	Status string `yaml:"status"`
	Rows   int64  `yaml:"rows"`
	Error  string `yaml:"error,omitempty"`
}

type verifiedEntry struct {
	Table    string `yaml:"table"`
	Rows     int    `yaml:"rows"`
	Verified int    `yaml:"verified"`
}

type findingEntry struct {
	Kind   string `yaml:"kind"`
	Table  string `yaml:"table"`
	Column string `yaml:"column,omitempty"`
	Key    string `yaml:"key,omitempty"`
	Source string `yaml:"source,omitempty"`
	Dest   string `yaml:"dest,omitempty"`
}

func writeReport(path string, report *engine.Report, copied *engine.CopyReport) error {
	out := reportFile{
		Outcome:  report.Outcome.String(),
		ExitCode: report.Outcome.ExitCode(),
		Message:  report.Outcome.Message(),
		Skipped:  report.Skipped,
	}
	if copied != nil {
		for _, r := range copied.Results {
			e := copiedEntry{Table: r.Table, Status: string(r.Status), Rows: r.Rows}
			if r.Err != nil {
				e.Error = r.Err.Error()
			}
			out.Copied = append(out.Copied, e)
		}
	}
	for _, t := range report.Tables {
		out.Tables = append(out.Tables, verifiedEntry{Table: t.Table, Rows: t.Rows, Verified: t.Verified})
	}
	for _, f := range report.Findings {
		e := findingEntry{Kind: string(f.Kind), Table: f.Table, Column: f.Column}
		if f.Key.Len() > 0 {
			e.Key = f.Key.String()
		}
		if f.Kind == engine.FindingValueMismatch {
			e.Source = display(f.Source)
			e.Dest = display(f.Dest)
		}
		out.Findings = append(out.Findings, e)
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func display(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("%x", x)
	default:
		return fmt.Sprint(x)
	}
}
