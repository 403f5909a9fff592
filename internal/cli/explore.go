package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/crisprtower/pkg/config"
	"github.com/matzehuels/crisprtower/pkg/dataset"
	errs "github.com/matzehuels/crisprtower/pkg/errors"
	"github.com/matzehuels/crisprtower/pkg/layout"
	"github.com/matzehuels/crisprtower/pkg/pipeline"
	"github.com/matzehuels/crisprtower/pkg/tree"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listLockedStyle   = lipgloss.NewStyle().Foreground(colorYellow)
)

// exploreCommand creates the interactive explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		output string
		flags  settingFlags
	)

	cmd := &cobra.Command{
		Use:   "explore [dataset-dir]",
		Short: "Explore the layout interactively",
		Long: `Explore the layout of a dataset in the terminal.

Move through the nodes with the arrow keys and change the view:

  s / enter   switch the children of the selected node
  + / -       extend or reduce the branch scale
  r / t       reset to the best scale, or jump to the minimum scale
  c           collapse or expand singular spacer stretches
  w           write the current view as SVG
  q           quit

Collapsing locks switching and relative rescaling until it is undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.commandConfig(cmd, &flags)
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(args[0], datasetName(args[0])+".svg")
			}
			model, err := c.newExploreModel(cmd.Context(), args[0], cfg, output)
			if err != nil {
				return err
			}
			final, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(ExploreModel); ok && len(m.written) > 0 {
				for _, path := range m.written {
					printFile(path)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "SVG written by 'w' (default: <dataset>/<name>.svg)")
	flags.register(cmd)

	return cmd
}

// newExploreModel loads and optimizes the dataset once; every key press then
// works on the in-memory view.
func (c *CLI) newExploreModel(ctx context.Context, dir string, cfg config.Config, output string) (ExploreModel, error) {
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	_, m, err := runner.Model(ctx, dir)
	if err != nil {
		return ExploreModel{}, err
	}
	opt, err := pipeline.Optimize(ctx, m, cfg)
	if err != nil {
		return ExploreModel{}, err
	}
	v, err := pipeline.Layout(m, opt, cfg, pipeline.ViewOptions{})
	if err != nil {
		return ExploreModel{}, err
	}
	return NewExploreModel(ctx, m, opt, v, cfg, output), nil
}

// =============================================================================
// ExploreModel - Interactive layout view
// =============================================================================

// ExploreModel is the bubbletea model for the explore command.
type ExploreModel struct {
	ctx    context.Context
	model  *dataset.Model
	opt    pipeline.Optimization
	view   *layout.View
	cfg    config.Config
	output string

	nodes  []tree.NodeID
	Cursor int
	Height int
	Offset int

	status  string
	failed  bool
	written []string
}

// NewExploreModel creates an explore model over v.
func NewExploreModel(ctx context.Context, m *dataset.Model, opt pipeline.Optimization, v *layout.View, cfg config.Config, output string) ExploreModel {
	return ExploreModel{
		ctx:    ctx,
		model:  m,
		opt:    opt,
		view:   v,
		cfg:    cfg,
		output: output,
		nodes:  v.Preorder(),
		Height: 15,
	}
}

func (m ExploreModel) Init() tea.Cmd {
	return nil
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status, m.failed = "", false
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "s", "enter":
			id := m.nodes[m.Cursor]
			m = m.apply(m.view.Switch(id), "switched "+m.view.Tree().Name(id))
			m.nodes = m.view.Preorder()
			m.Cursor = indexOf(m.nodes, id)
		case "+", "=":
			m = m.apply(m.view.Rescale(layout.Extend), "extended")
		case "-", "_":
			m = m.apply(m.view.Rescale(layout.Reduce), "reduced")
		case "r":
			m = m.apply(m.view.Rescale(layout.Reset), "reset to the best scale")
		case "t":
			m = m.apply(m.view.Rescale(layout.Tiny), "minimum scale")
		case "c":
			m.view.SetCollapsed(!m.view.Collapsed())
			m.status = "expanded"
			if m.view.Collapsed() {
				m.status = "collapsed"
			}
		case "w":
			path, err := m.write()
			m = m.apply(err, "wrote "+path)
			if err == nil {
				m.written = append(m.written, path)
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// apply records the outcome of a view operation in the status line.
func (m ExploreModel) apply(err error, ok string) ExploreModel {
	if err != nil {
		m.status, m.failed = err.Error(), true
		if errs.Is(err, errs.ErrCodeLocked) {
			m.status = "locked: " + err.Error() + " (press c to expand)"
		}
		return m
	}
	m.status = ok
	return m
}

// write renders the current view as SVG to the output path.
func (m ExploreModel) write() (string, error) {
	s, err := pipeline.BuildScene(m.model, m.view, m.opt.Result, m.cfg)
	if err != nil {
		return "", err
	}
	title := datasetName(filepath.Dir(m.output))
	out, err := pipeline.Render(m.ctx, s, m.model, []string{pipeline.FormatSVG}, m.cfg, title)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(m.output, out[pipeline.FormatSVG], 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", m.output, err)
	}
	return m.output, nil
}

func (m ExploreModel) View() string {
	var b strings.Builder
	t := m.view.Tree()

	b.WriteString(StyleTitle.Render("Explore Layout"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  s switch  +/- scale  r reset  t tiny  c collapse  w write  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.nodes))
	for i := m.Offset; i < end; i++ {
		id := m.nodes[i]
		vn := m.view.Node(id)
		depth := len(t.Path(id)) - 1

		cursor := "  "
		style := listNormalStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		line := cursor + strings.Repeat("  ", depth) + t.Name(id)
		if vn.Switched {
			line += " ⇅"
		}
		b.WriteString(style.Render(line))
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  (%.0f, %.0f)", vn.X, vn.Y)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	state := "expanded"
	if m.view.Collapsed() {
		state = "collapsed"
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  scale %.4g (best %.4g, min %.4g) · %s · [%d/%d]",
		m.view.Scale(), m.view.BestScale(), m.view.MinScale(), state, m.Cursor+1, len(m.nodes))))
	if m.status != "" {
		b.WriteString("\n  ")
		if m.failed {
			b.WriteString(listLockedStyle.Render(m.status))
		} else {
			b.WriteString(StyleSuccess.Render(m.status))
		}
	}
	return b.String()
}

func indexOf(ids []tree.NodeID, id tree.NodeID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return 0
}
