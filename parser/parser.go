package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
	"github.com/thepwagner/clrm/subst"
)

const (
	// SetupCommand and TeardownCommand bracket every parsed definition.
	SetupCommand    = "_setup"
	TeardownCommand = "_teardown"

	continuationIndent = 4
	hereDocOpen        = "<<<<"
	hereDocClose       = ">>>>"
)

// Parser turns definition files into exec records validated against a registry.
type Parser struct {
	registry *command.Registry
}

func New(registry *command.Registry) *Parser {
	return &Parser{registry: registry}
}

func (p *Parser) ParseFile(path string) ([]*command.ExecRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening definition: %w", err)
	}
	defer f.Close()
	return p.Parse(f, path)
}

func (p *Parser) ParseString(text, fileName string) ([]*command.ExecRecord, error) {
	return p.Parse(strings.NewReader(text), fileName)
}

// Parse reads a definition from r. The result always starts with a _setup
// record and ends with a _teardown record, both located at <BUILT_IN>:1.
func (p *Parser) Parse(r io.Reader, fileName string) ([]*command.ExecRecord, error) {
	setup, err := p.registry.NewExecRecord(location.BuiltIn(), SetupCommand, nil, nil)
	if err != nil {
		return nil, err
	}

	st := &state{registry: p.registry, records: []*command.ExecRecord{setup}}
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", fileName, readErr)
		}
		if line != "" || readErr == nil {
			lineNo++
			if err := st.line(location.New(fileName, lineNo), line); err != nil {
				return nil, err
			}
		}
		if readErr != nil {
			break
		}
	}
	if err := st.eof(); err != nil {
		return nil, err
	}

	teardown, err := p.registry.NewExecRecord(location.BuiltIn(), TeardownCommand, nil, nil)
	if err != nil {
		return nil, err
	}
	return append(st.records, teardown), nil
}

type lexMode int

const (
	bare lexMode = iota
	singleQuoted
	doubleQuoted
	hereDoc
)

type state struct {
	registry *command.Registry
	records  []*command.ExecRecord

	// command being assembled
	pending  bool
	name     string
	startLoc location.Location
	depth    int
	args     []command.Value
	kwargs   map[string]command.Value

	// token being assembled, may span lines while mode != bare
	mode      lexMode
	openedAt  location.Location
	tok       strings.Builder
	tokActive bool
	tokQuoted bool
	key       string
	inValue   bool
}

func (s *state) line(loc location.Location, raw string) error {
	text := strings.TrimRight(raw, "\r\n")

	if s.mode != bare {
		if err := s.lex(loc, text); err != nil {
			return err
		}
		return s.endLine(loc)
	}

	col := 0
	for col < len(text) && (text[col] == ' ' || text[col] == '\t') {
		col++
	}
	if col == len(text) || text[col] == '#' {
		return nil
	}

	if s.pending && col >= s.depth {
		if err := s.lex(loc, text[col:]); err != nil {
			return err
		}
		return s.endLine(loc)
	}

	if err := s.flush(); err != nil {
		return err
	}
	rest, err := s.begin(loc, text, col)
	if err != nil {
		return err
	}
	if err := s.lex(loc, rest); err != nil {
		return err
	}
	return s.endLine(loc)
}

// begin reads the command name starting at col and returns the remainder of the line.
func (s *state) begin(loc location.Location, text string, col int) (string, error) {
	end := col
	for end < len(text) && isNameByte(text[end]) {
		end++
	}
	name := text[col:end]
	if name == "" {
		return "", errdefs.Parse(&loc, "empty command name")
	}
	if !command.ValidName(name) {
		return "", errdefs.Parse(&loc, "invalid command name %q", name)
	}
	if end < len(text) && !isSpace(text[end]) && text[end] != '#' {
		return "", errdefs.Parse(&loc, "invalid command syntax after %q", name)
	}

	s.pending = true
	s.name = name
	s.startLoc = loc
	s.depth = col + continuationIndent
	s.args = nil
	s.kwargs = map[string]command.Value{}
	return text[end:], nil
}

func (s *state) endLine(loc location.Location) error {
	if s.mode != bare {
		s.tok.WriteByte('\n')
		return nil
	}
	return s.endToken(loc)
}

func (s *state) lex(loc location.Location, text string) error {
	for i := 0; i < len(text); {
		switch s.mode {
		case hereDoc:
			idx := strings.Index(text[i:], hereDocClose)
			if idx < 0 {
				s.tok.WriteString(text[i:])
				return nil
			}
			s.tok.WriteString(text[i : i+idx])
			i += idx + len(hereDocClose)
			s.mode = bare

		case singleQuoted, doubleQuoted:
			quote := byte('\'')
			if s.mode == doubleQuoted {
				quote = '"'
			}
			c := text[i]
			switch {
			case c == '\\':
				if i+1 >= len(text) || (text[i+1] != '\\' && text[i+1] != quote) {
					return errdefs.Parse(&loc, "illegal escape sequence in quoted string")
				}
				s.tok.WriteByte(text[i+1])
				i += 2
			case c == quote:
				s.mode = bare
				i++
			default:
				s.tok.WriteByte(c)
				i++
			}

		default:
			c := text[i]
			switch {
			case isSpace(c):
				if err := s.endToken(loc); err != nil {
					return err
				}
				i++
			case c == '#':
				return s.endToken(loc)
			case c == '\'' || c == '"':
				s.openPart(loc)
				if c == '"' {
					s.mode = doubleQuoted
				} else {
					s.mode = singleQuoted
				}
				i++
			case strings.HasPrefix(text[i:], hereDocOpen):
				s.openPart(loc)
				s.mode = hereDoc
				i += len(hereDocOpen)
			case c == '\\':
				if i+1 >= len(text) || !isBareEscape(text[i+1]) {
					return errdefs.Parse(&loc, "illegal escape sequence %q", text[i:min(i+2, len(text))])
				}
				s.tok.WriteByte(text[i+1])
				s.tokActive = true
				i += 2
			case c == '=' && !s.inValue && !s.tokQuoted:
				key := s.tok.String()
				if !subst.ValidKey(key) {
					return errdefs.Parse(&loc, "invalid keyword name %q", key)
				}
				if _, dup := s.kwargs[key]; dup {
					return errdefs.Parse(&loc, "duplicate keyword argument %q", key)
				}
				s.key = key
				s.inValue = true
				s.tok.Reset()
				s.tokActive = false
				i++
			default:
				s.tok.WriteByte(c)
				s.tokActive = true
				i++
			}
		}
	}
	return nil
}

func (s *state) openPart(loc location.Location) {
	s.tokActive = true
	s.tokQuoted = true
	s.openedAt = loc
}

func (s *state) endToken(loc location.Location) error {
	defer s.resetToken()

	var v command.Value
	if s.tokQuoted {
		v = command.String(s.tok.String())
	} else {
		v = command.Interpret(s.tok.String())
	}

	if s.inValue {
		if !s.tokActive {
			v = command.String("")
		}
		if _, dup := s.kwargs[s.key]; dup {
			return errdefs.Parse(&loc, "duplicate keyword argument %q", s.key)
		}
		s.kwargs[s.key] = v
		return nil
	}
	if s.tokActive {
		s.args = append(s.args, v)
	}
	return nil
}

func (s *state) resetToken() {
	s.tok.Reset()
	s.tokActive = false
	s.tokQuoted = false
	s.inValue = false
	s.key = ""
}

func (s *state) flush() error {
	if !s.pending {
		return nil
	}
	s.pending = false
	rec, err := s.registry.NewExecRecord(s.startLoc, s.name, s.args, s.kwargs)
	if err != nil {
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *state) eof() error {
	switch s.mode {
	case singleQuoted, doubleQuoted:
		return errdefs.Parse(&s.openedAt, "Unexpected EOF: unterminated quoted string")
	case hereDoc:
		return errdefs.Parse(&s.openedAt, "Unexpected EOF: unterminated here document")
	}
	return s.flush()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isBareEscape(c byte) bool {
	return c == ' ' || c == '\\' || c == '\'' || c == '"'
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
