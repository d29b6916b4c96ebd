package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/gosuda/kanban/internal/board"
	"github.com/gosuda/kanban/internal/domain"
	"github.com/gosuda/kanban/internal/engine"
)

// ErrUsage marks a command line that could not be understood.
var ErrUsage = errors.New("cli: usage") //nolint:gochecknoglobals // sentinel error

const helpText = `commands:
  show                              draw the board
  add <column> <title>              create a card at the end of a column
  move <card> <column> [index]      move a card (index defaults to the end)
  edit <card> <title> [description] change title and description
  rm <card>                         delete a card
  refresh                           reload the board from the store
  help                              this text
  quit                              leave
columns match by id, title or 1-based position; cards by id or unique id prefix.
quote arguments containing spaces: add "To Do" "Write spec"
`

// Command is one parsed shell line.
type Command struct {
	Name string
	Args []string
}

// ParseCommand splits a line into a command name and arguments using shell
// word rules: single or double quotes group words, a backslash escapes the
// next character, and an unquoted # starts a comment.
func ParseCommand(line string) (Command, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if len(args) == 0 {
		return Command{}, nil
	}
	return Command{Name: strings.ToLower(args[0]), Args: args[1:]}, nil
}

// Shell reads commands and turns them into coordinator intents.
type Shell struct {
	coord *engine.Coordinator
	r     *Renderer
}

func NewShell(coord *engine.Coordinator, r *Renderer) *Shell {
	return &Shell{coord: coord, r: r}
}

// Run executes lines from in until EOF, quit, or ctx is done.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	s.r.Show(s.coord.View())
	for {
		s.r.Printf("kanban> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		quit, err := s.Exec(ctx, scanner.Text())
		if err != nil {
			s.r.Errorf("%v", err)
		}
		if quit {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("cli.Shell.Run: %w", err)
	}
	return nil
}

// Exec runs one command line. It reports whether the shell should stop.
func (s *Shell) Exec(ctx context.Context, line string) (bool, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return false, err
	}

	switch cmd.Name {
	case "":
		return false, nil
	case "quit", "exit":
		return true, nil
	case "help":
		s.r.Printf("%s", helpText)
		return false, nil
	case "show", "ls":
		s.r.Show(s.coord.View())
		return false, nil
	case "refresh":
		if err := s.coord.Hydrate(ctx); err != nil {
			return false, err
		}
		s.r.Show(s.coord.View())
		return false, nil
	case "add":
		return false, s.add(ctx, cmd.Args)
	case "move", "mv":
		return false, s.move(ctx, cmd.Args)
	case "edit":
		return false, s.edit(ctx, cmd.Args)
	case "rm", "delete":
		return false, s.remove(ctx, cmd.Args)
	default:
		return false, fmt.Errorf("unknown command %q, try help: %w", cmd.Name, ErrUsage)
	}
}

func (s *Shell) add(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("add <column> <title>: %w", ErrUsage)
	}
	col, err := resolveColumn(s.coord.View(), args[0])
	if err != nil {
		return err
	}
	if _, err := s.coord.AddCard(ctx, col.ID, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	s.r.Show(s.coord.View())
	return nil
}

func (s *Shell) move(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("move <card> <column> [index]: %w", ErrUsage)
	}
	view := s.coord.View()
	cardID, err := resolveCard(view, args[0])
	if err != nil {
		return err
	}
	dest, err := resolveColumn(view, args[1])
	if err != nil {
		return err
	}

	src, srcIndex := locate(view, cardID)
	drag := board.Drag{
		CardID:         cardID,
		SourceColumnID: src.ID,
		SourceIndex:    srcIndex,
		DestColumnID:   dest.ID,
		DestIndex:      len(dest.Cards),
	}
	if dest.ID == src.ID {
		drag.DestIndex = len(dest.Cards) - 1
	}
	if len(args) == 3 {
		idx, err := strconv.Atoi(args[2])
		if err != nil || idx < 0 {
			return fmt.Errorf("index %q must be a non-negative number: %w", args[2], ErrUsage)
		}
		drag.DestIndex = idx
	}

	p, err := s.coord.DragEnd(ctx, drag)
	if err != nil {
		return err
	}
	if p != nil {
		s.r.Show(s.coord.View())
	}
	return nil
}

func (s *Shell) edit(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("edit <card> <title> [description]: %w", ErrUsage)
	}
	cardID, err := resolveCard(s.coord.View(), args[0])
	if err != nil {
		return err
	}
	card, _ := s.coord.Card(cardID)
	desc := card.Description
	if len(args) == 3 {
		desc = args[2]
	}
	if _, err := s.coord.UpdateCard(ctx, cardID, args[1], desc); err != nil {
		return err
	}
	s.r.Show(s.coord.View())
	return nil
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("rm <card>: %w", ErrUsage)
	}
	cardID, err := resolveCard(s.coord.View(), args[0])
	if err != nil {
		return err
	}
	if _, err := s.coord.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	s.r.Show(s.coord.View())
	return nil
}

// resolveColumn matches ref against column ids, titles (case-insensitive)
// and 1-based positions, in that order.
func resolveColumn(v board.View, ref string) (board.ColumnView, error) {
	for _, c := range v.Columns {
		if c.ID == ref {
			return c, nil
		}
	}
	for _, c := range v.Columns {
		if strings.EqualFold(c.Title, ref) {
			return c, nil
		}
	}
	if n, err := strconv.Atoi(ref); err == nil && n >= 1 && n <= len(v.Columns) {
		return v.Columns[n-1], nil
	}
	return board.ColumnView{}, fmt.Errorf("no column %q: %w", ref, domain.ErrInvalidReference)
}

// resolveCard matches ref against card ids, then unique id prefixes.
func resolveCard(v board.View, ref string) (string, error) {
	var match string
	for _, col := range v.Columns {
		for _, c := range col.Cards {
			if c.ID == ref {
				return c.ID, nil
			}
			if ref != "" && strings.HasPrefix(c.ID, ref) {
				if match != "" {
					return "", fmt.Errorf("card prefix %q is ambiguous: %w", ref, ErrUsage)
				}
				match = c.ID
			}
		}
	}
	if match == "" {
		return "", fmt.Errorf("no card %q: %w", ref, domain.ErrInvalidReference)
	}
	return match, nil
}

func locate(v board.View, cardID string) (board.ColumnView, int) {
	for _, col := range v.Columns {
		for i, c := range col.Cards {
			if c.ID == cardID {
				return col, i
			}
		}
	}
	return board.ColumnView{}, -1
}
