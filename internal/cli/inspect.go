package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/pkg/arrays"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	"github.com/matzehuels/crisprtower/pkg/pipeline"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// inspectCommand creates the inspect command for summarizing a dataset.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		showArrays bool
		flags      settingFlags
	)

	cmd := &cobra.Command{
		Use:   "inspect [dataset-dir]",
		Short: "Print the tree, its events and the chosen scale",
		Long: `Print a summary of a dataset.

The inspect command loads a dataset folder, runs the scale optimizer and
prints the files that were read, every node with its branch length and event
counts, and the scale search result. With --arrays the aligned spacer arrays
are printed as well (1 present, d deleted, . absent).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(nil, nil, c.Logger)
			d, m, err := runner.Model(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			opt, err := pipeline.Optimize(cmd.Context(), m, cfg)
			if err != nil {
				return err
			}
			return writeInspection(cmd.OutOrStdout(), d, m, opt, showArrays)
		},
	}

	cmd.Flags().BoolVar(&showArrays, "arrays", false, "print the aligned spacer arrays")
	flags.register(cmd)

	return cmd
}

// writeInspection prints the dataset summary to w.
func writeInspection(w io.Writer, d *dataset.Dataset, m *dataset.Model, opt pipeline.Optimization, showArrays bool) error {
	fmt.Fprintln(w, StyleTitle.Render(datasetName(d.Dir)))
	writeKeyValue(w, "schema", d.Schema.String())
	writeKeyValue(w, "digest", shortDigest(d.Digest))

	files := newTable("File", "Path")
	for _, suffix := range dataset.Suffixes {
		path, ok := d.Files[suffix]
		if !ok {
			path = StyleDim.Render("missing")
		}
		files.Row(suffix, path)
	}
	fmt.Fprintln(w, files.Render())

	fmt.Fprintln(w, nodeTable(m.Tree, opt.Extensions).Render())

	res := opt.Result
	fmt.Fprintln(w, StyleTitle.Render("Scale"))
	writeKeyValue(w, "best", formatFloat(res.BestScale))
	writeKeyValue(w, "min", formatFloat(res.MinScale))
	writeKeyValue(w, "size", formatFloat(res.Size))
	writeKeyValue(w, "extensions", strconv.Itoa(res.Extensions))
	if res.Fallback {
		fmt.Fprintf(w, "  %s %s\n", StyleWarning.Render(iconWarning), StyleWarning.Render("no scale inside the target window"))
	}

	fmt.Fprintln(w, StyleTitle.Render("Arrays"))
	writeKeyValue(w, "spacers", strconv.Itoa(m.Template.Len()))
	writeKeyValue(w, "arrays", strconv.Itoa(len(m.Arrays)))
	writeKeyValue(w, "singular stretches", strconv.Itoa(len(m.Collapse.Stretches)))
	if showArrays {
		fmt.Fprintln(w, arrayTable(m.Arrays).Render())
	}
	return nil
}

// nodeTable lists the nodes in preorder with their event counts.
func nodeTable(t *tree.Tree, ext []float64) *table.Table {
	kinds := tree.AllKinds()
	headers := []string{"Node", "Distance", "Extension"}
	for _, k := range kinds {
		headers = append(headers, k.String())
	}
	tbl := newTable(headers...)
	for _, id := range t.Preorder() {
		n := t.Node(id)
		depth := len(t.Path(id)) - 1
		row := []string{
			strings.Repeat("  ", depth) + n.Name,
			formatFloat(n.Distance),
			formatFloat(ext[id]),
		}
		for _, k := range kinds {
			cell := ""
			if l := n.Events.Get(k); !l.Empty() {
				cell = strconv.Itoa(l.Len())
			}
			row = append(row, cell)
		}
		tbl.Row(row...)
	}
	return tbl
}

// arrayTable prints each array as one string of presence characters.
func arrayTable(arrs []arrays.Array) *table.Table {
	tbl := newTable("Array", "Cells", "Present", "Deleted")
	for _, a := range arrs {
		var sb strings.Builder
		for _, cell := range a.Cells {
			if cell == arrays.Absent {
				sb.WriteByte('.')
				continue
			}
			sb.WriteString(cell.String())
		}
		tbl.Row(a.Name, sb.String(),
			strconv.Itoa(a.Count(arrays.Present)),
			strconv.Itoa(a.Count(arrays.Deleted)))
	}
	return tbl
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
