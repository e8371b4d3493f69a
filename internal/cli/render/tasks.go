package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TasksRenderer renders the task registry
type TasksRenderer struct {
	out     io.Writer
	verbose bool
}

// NewTasksRenderer creates a new task list renderer. In verbose mode the
// parameters of every task are listed as well.
func NewTasksRenderer(out io.Writer, verbose bool) *TasksRenderer {
	return &TasksRenderer{out: out, verbose: verbose}
}

var _ Renderer[[]usecase.Task] = (*TasksRenderer)(nil)

// Render prints one row per task
func (r *TasksRenderer) Render(tasks []usecase.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(r.out, "No tasks registered")
		return nil
	}

	t := newPlainTable()
	for _, task := range tasks {
		t.AppendRow(table.Row{roleStyle.Sprint(task.Name()), task.Description()})
	}
	fmt.Fprintln(r.out, t.Render())

	if !r.verbose {
		return nil
	}

	title := cases.Title(language.English)
	for _, task := range tasks {
		params := task.Parameters()
		if len(params) == 0 {
			continue
		}

		fmt.Fprintln(r.out)
		headerStyle.Fprintln(r.out, task.Name())

		pt := newPlainTable()
		for _, p := range params {
			var notes []string
			if p.Required {
				notes = append(notes, color.New(color.FgYellow).Sprint("required"))
			}
			if p.HasDefault() {
				notes = append(notes, keyStyle.Sprintf("default %s", p.Default))
			}
			pt.AppendRow(table.Row{
				"--" + p.Name,
				title.String(string(p.Kind)),
				strings.TrimSpace(p.Description + "  " + strings.Join(notes, ", ")),
			})
		}
		fmt.Fprintln(r.out, indentLines(pt.Render(), "  "))
	}
	return nil
}
