package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/matzehuels/pypi-updater/pkg/planner"
)

// newPrompter returns a bubbletea prompter when in is a terminal and a
// line-based prompter otherwise, so answers can be piped in.
func newPrompter(in io.Reader, out io.Writer) planner.Prompter {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return &teaPrompter{in: in, out: out}
	}
	return newLinePrompter(in, out)
}

// describeCandidate renders "[2/5] django 4.1.0 → 4.2.0 (minor)  requirements/base.in:3".
func describeCandidate(c planner.Candidate) string {
	d := c.Declaration
	return fmt.Sprintf("%s %s %s %s %s %s  %s",
		StyleDim.Render(fmt.Sprintf("[%d/%d]", c.Index, c.Total)),
		StyleTitle.Render(d.Name),
		c.Current,
		StyleDim.Render(iconArrow),
		StyleHighlight.Render(c.Latest.String()),
		StyleDim.Render("("+c.Bump.String()+")"),
		StyleDim.Render(fmt.Sprintf("%s:%d", d.File, d.Line+1)),
	)
}

// =============================================================================
// confirmModel - Single update confirmation
// =============================================================================

// confirmModel asks whether to apply one update. Enter selects the default,
// which is to skip.
type confirmModel struct {
	candidate planner.Candidate
	answer    planner.Answer
	done      bool
}

func newConfirmModel(c planner.Candidate) confirmModel {
	return confirmModel{candidate: c, answer: planner.AnswerSkip}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || m.done {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer = planner.AnswerApply
	case "n", "N", "enter":
		m.answer = planner.AnswerSkip
	case "q", "Q", "ctrl+c", "esc":
		m.answer = planner.AnswerQuit
	default:
		return m, nil
	}
	m.done = true
	return m, tea.Quit
}

func (m confirmModel) View() string {
	line := describeCandidate(m.candidate)
	if !m.done {
		return line + "\n" + StyleDim.Render("apply? [y/N/q] ")
	}
	switch m.answer {
	case planner.AnswerApply:
		return styleIconSuccess.Render(iconSuccess) + " " + line + "\n"
	case planner.AnswerQuit:
		return styleIconError.Render(iconError) + " " + line + StyleDim.Render("  quit") + "\n"
	}
	return styleIconInfo.Render(iconInfo) + " " + line + StyleDim.Render("  skipped") + "\n"
}

// teaPrompter runs one confirmModel program per candidate.
type teaPrompter struct {
	in  io.Reader
	out io.Writer
}

func (p *teaPrompter) Confirm(ctx context.Context, c planner.Candidate) (planner.Answer, error) {
	prog := tea.NewProgram(newConfirmModel(c),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		return planner.AnswerQuit, err
	}
	return final.(confirmModel).answer, nil
}

// =============================================================================
// linePrompter - Non-terminal input
// =============================================================================

// linePrompter reads one answer per line. End of input is an error, which
// the planner treats as quitting.
type linePrompter struct {
	lines chan lineResult
	out   io.Writer
}

type lineResult struct {
	text string
	err  error
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	p := &linePrompter{lines: make(chan lineResult), out: out}
	go p.read(bufio.NewReader(in))
	return p
}

// read feeds lines to Confirm. It runs in its own goroutine so that a
// cancelled context does not wait for input.
func (p *linePrompter) read(r *bufio.Reader) {
	for {
		text, err := r.ReadString('\n')
		if err != nil && text == "" {
			p.lines <- lineResult{err: err}
			close(p.lines)
			return
		}
		p.lines <- lineResult{text: strings.TrimSpace(text)}
	}
}

func (p *linePrompter) Confirm(ctx context.Context, c planner.Candidate) (planner.Answer, error) {
	fmt.Fprintf(p.out, "%s\n%s", describeCandidate(c), StyleDim.Render("apply? [y/N/q] "))
	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return planner.AnswerQuit, ctx.Err()
	case res, ok := <-p.lines:
		if !ok {
			res.err = io.EOF
		}
		if res.err != nil {
			fmt.Fprintln(p.out)
			return planner.AnswerQuit, fmt.Errorf("read answer: %w", res.err)
		}
		return parseAnswer(res.text), nil
	}
}

func parseAnswer(s string) planner.Answer {
	switch strings.ToLower(s) {
	case "y", "yes":
		return planner.AnswerApply
	case "q", "quit":
		return planner.AnswerQuit
	}
	return planner.AnswerSkip
}
