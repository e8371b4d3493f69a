package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/vaultctl/internal/usecase"
)

var (
	roleStyle    = color.New(color.FgCyan)
	addressStyle = color.New(color.FgWhite)
	keyStyle     = color.New(color.Faint)
	headerStyle  = color.New(color.Bold, color.FgHiWhite)
)

// TaskRenderer renders task results
type TaskRenderer struct {
	out io.Writer
}

// NewTaskRenderer creates a new task renderer
func NewTaskRenderer(out io.Writer) *TaskRenderer {
	return &TaskRenderer{out: out}
}

var _ Renderer[*usecase.TaskResult] = (*TaskRenderer)(nil)

// Render prints the artifacts and values of a task result, followed by its sub-tasks
func (r *TaskRenderer) Render(result *usecase.TaskResult) error {
	r.render(result, "")
	return nil
}

func (r *TaskRenderer) render(result *usecase.TaskResult, indent string) {
	headerStyle.Fprintf(r.out, "%s%s\n", indent, result.Task)

	if len(result.Artifacts) > 0 {
		fmt.Fprintln(r.out, indentLines(r.artifactsTable(result), indent+"  "))
	}
	if len(result.Values) > 0 {
		fmt.Fprintln(r.out, indentLines(r.valuesTable(result), indent+"  "))
	}

	for _, sub := range result.SubTasks {
		r.render(sub, indent+"  ")
	}
}

func (r *TaskRenderer) artifactsTable(result *usecase.TaskResult) string {
	roles := make([]string, 0, len(result.Artifacts))
	for role := range result.Artifacts {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	t := newPlainTable()
	for _, role := range roles {
		artifact := result.Artifacts[role]
		t.AppendRow(table.Row{
			roleStyle.Sprint(role),
			artifact.Contract.Name,
			addressStyle.Sprint(artifact.Address().Hex()),
		})
	}
	return t.Render()
}

func (r *TaskRenderer) valuesTable(result *usecase.TaskResult) string {
	t := newPlainTable()
	for _, kv := range result.Values {
		t.AppendRow(table.Row{keyStyle.Sprint(kv.Key), kv.Value})
	}
	return t.Render()
}

// newPlainTable returns a borderless left-aligned table
func newPlainTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateHeader = false
	t.Style().Options.SeparateColumns = false
	t.Style().Box = table.BoxStyle{
		PaddingRight: "   ",
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft},
	})
	return t
}

func indentLines(s, indent string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
