package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StringListReport is a titled list of package names collected during a run.
type StringListReport struct {
	Title string
	Items []string
}

// RunReport groups the lists written by --write-intermediate.
type RunReport struct {
	Name  string
	Lists []*StringListReport
}

// NewRunReport returns an empty report for the named manifest.
func NewRunReport(name string) *RunReport {
	return &RunReport{Name: name}
}

// List returns the list with the given title, creating it on first use.
func (r *RunReport) List(title string) *StringListReport {
	for _, l := range r.Lists {
		if l.Title == title {
			return l
		}
	}
	l := &StringListReport{Title: title, Items: []string{}}
	r.Lists = append(r.Lists, l)
	return l
}

// Add appends items to the list with the given title.
func (r *RunReport) Add(title string, items ...string) {
	l := r.List(title)
	l.Items = append(l.Items, items...)
}

// SafeName replaces everything but ASCII letters, digits, '-' and '.' with '_'.
func SafeName(title string) string {
	if title == "" {
		return "untitled"
	}
	var b strings.Builder
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '.' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// WriteToFile writes the report to dir/<name>-report.txt, one section per list,
// and returns the path written.
func (r *RunReport) WriteToFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating base path: %w", err)
	}

	reportFullPath := filepath.Join(dir, fmt.Sprintf("%s-report.txt", SafeName(r.Name)))

	f, err := os.OpenFile(reportFullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	for _, l := range r.Lists {
		if _, err := fmt.Fprintf(f, "# %s (%d)\n", l.Title, len(l.Items)); err != nil {
			return "", fmt.Errorf("writing to file: %w", err)
		}
		for _, item := range l.Items {
			if _, err := fmt.Fprintln(f, item); err != nil {
				return "", fmt.Errorf("writing to file: %w", err)
			}
		}
		if _, err := fmt.Fprintln(f); err != nil {
			return "", fmt.Errorf("writing new line to file: %w", err)
		}
	}

	return reportFullPath, nil
}
