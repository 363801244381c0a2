package parser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/command"
	"github.com/thepwagner/clrm/errdefs"
	"github.com/thepwagner/clrm/location"
	"github.com/thepwagner/clrm/parser"
)

func testRegistry() *command.Registry {
	r := command.NewRegistry()
	anything := func(location.Location, []command.Value, map[string]command.Value) (string, error) {
		return "", nil
	}
	for _, name := range []string{"test1", "test2", "create", "pacman", "add_hook"} {
		r.Register(&command.Definition{CommandName: name, ValidateFn: anything})
	}
	r.Register(&command.Definition{CommandName: parser.SetupCommand})
	r.Register(&command.Definition{CommandName: parser.TeardownCommand})
	r.Register(&command.Definition{
		CommandName: "based_on",
		ValidateFn: func(loc location.Location, args []command.Value, kwargs map[string]command.Value) (string, error) {
			if err := command.ExpectArgs(loc, "based_on", args, 1, 1); err != nil {
				return "", err
			}
			if base := command.StringArg(args, 0); base != "scratch" {
				return base, nil
			}
			return "", nil
		},
	})
	return r
}

func parse(t *testing.T, text string) []*command.ExecRecord {
	t.Helper()
	recs, err := parser.New(testRegistry()).ParseString(text, "test.def")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(recs), 2)
	assert.Equal(t, parser.SetupCommand, recs[0].Command)
	assert.Equal(t, location.BuiltIn().Short(), recs[0].Location.Short())
	last := recs[len(recs)-1]
	assert.Equal(t, parser.TeardownCommand, last.Command)
	assert.Equal(t, location.BuiltIn().Short(), last.Location.Short())
	return recs[1 : len(recs)-1]
}

func strs(values ...string) []command.Value {
	ret := make([]command.Value, 0, len(values))
	for _, v := range values {
		ret = append(ret, command.String(v))
	}
	return ret
}

func TestParse_Empty(t *testing.T) {
	for _, in := range []string{"", "# nothing\n", "\n\n   \n", "   # indented comment\n"} {
		assert.Empty(t, parse(t, in))
	}
}

func TestParse_TwoCommands(t *testing.T) {
	recs := parse(t, "test1 arg1\ntest2 key=val\n")
	require.Len(t, recs, 2)

	assert.Equal(t, "test1", recs[0].Command)
	assert.Equal(t, strs("arg1"), recs[0].Args)
	assert.Empty(t, recs[0].Kwargs)
	assert.Equal(t, 1, recs[0].Location.LineNumber)
	assert.Equal(t, "test1", recs[0].Location.Description)

	assert.Equal(t, "test2", recs[1].Command)
	assert.Empty(t, recs[1].Args)
	assert.Equal(t, map[string]command.Value{"key": command.String("val")}, recs[1].Kwargs)
	assert.Equal(t, 2, recs[1].Location.LineNumber)
}

func TestParse_Continuation(t *testing.T) {
	recs := parse(t, "test1 'arg1'\n    arg2 key=<<<<a\nb\nc>>>>\n")
	require.Len(t, recs, 1)
	assert.Equal(t, strs("arg1", "arg2"), recs[0].Args)
	assert.Equal(t, map[string]command.Value{"key": command.String("a\nb\nc")}, recs[0].Kwargs)
}

func TestParse_ContinuationDepth(t *testing.T) {
	recs := parse(t, `  test1 a
      b

      # comment inside
         c
     test2 d
`)
	require.Len(t, recs, 2)
	assert.Equal(t, strs("a", "b", "c"), recs[0].Args)
	assert.Equal(t, "test2", recs[1].Command)
	assert.Equal(t, strs("d"), recs[1].Args)
	assert.Equal(t, 6, recs[1].Location.LineNumber)
}

func TestParse_KeywordForms(t *testing.T) {
	for _, in := range []string{
		`test1 key="v a l u e"`,
		`test1 key='v a l u e'`,
		`test1 key=<<<<v a l u e>>>>`,
		`test1 key=v\ a\ l\ u\ e`,
		`test1 key=v' a '"l u"<<<< e>>>>`,
	} {
		t.Run(in, func(t *testing.T) {
			recs := parse(t, in)
			require.Len(t, recs, 1)
			assert.Equal(t, map[string]command.Value{"key": command.String("v a l u e")}, recs[0].Kwargs)
			assert.Empty(t, recs[0].Args)
		})
	}
}

func TestParse_Values(t *testing.T) {
	recs := parse(t, `test1 0o755 0O755 493 0xFF True False None '493' "True" plain a=b=c empty=`)
	require.Len(t, recs, 1)
	assert.Equal(t, []command.Value{
		command.Int(493), command.Int(493), command.Int(493), command.Int(255),
		command.Bool(true), command.Bool(false), command.Null(),
		command.String("493"), command.String("True"), command.String("plain"),
	}, recs[0].Args)
	assert.Equal(t, map[string]command.Value{
		"a":     command.String("b=c"),
		"empty": command.String(""),
	}, recs[0].Kwargs)
}

func TestParse_Comments(t *testing.T) {
	recs := parse(t, "test1 a # trailing 'comment\ntest2 \"#not\" <<<<#kept\n# too>>>> b#c\n")
	require.Len(t, recs, 2)
	assert.Equal(t, strs("a"), recs[0].Args)
	assert.Equal(t, strs("#not", "#kept\n# too", "b"), recs[1].Args)
}

func TestParse_HereDocVerbatim(t *testing.T) {
	body := "line one\n  \"quoted\" \\n 'x'\n\n# not a comment\nend"
	recs := parse(t, "create /etc/motd <<<<"+body+">>>> mode=0o644\n")
	require.Len(t, recs, 1)
	assert.Equal(t, strs("/etc/motd", body), recs[0].Args)
	assert.Equal(t, command.Int(0o644), recs[0].Kwargs["mode"])
}

func TestParse_MultiLineQuote(t *testing.T) {
	recs := parse(t, "create /etc/example \"line1\nline2\" mode=0o644\npacman foo bar baz remove=False\n")
	require.Len(t, recs, 2)
	assert.Equal(t, strs("/etc/example", "line1\nline2"), recs[0].Args)
	assert.Equal(t, "pacman", recs[1].Command)
	assert.Equal(t, command.Bool(false), recs[1].Kwargs["remove"])
	assert.Equal(t, 3, recs[1].Location.LineNumber)
}

func TestParse_Escapes(t *testing.T) {
	recs := parse(t, `test1 a\ b \\ \'x\" 'it\'s' "say \"hi\"" 'back\\slash'`)
	require.Len(t, recs, 1)
	assert.Equal(t, strs("a b", `\`, `'x"`, "it's", `say "hi"`, `back\slash`), recs[0].Args)
}

func TestParse_PositionalAfterKeyword(t *testing.T) {
	recs := parse(t, "add_hook export key=1 remove /usr/share/doc recursive=True")
	require.Len(t, recs, 1)
	assert.Equal(t, strs("export", "remove", "/usr/share/doc"), recs[0].Args)
	assert.Equal(t, map[string]command.Value{
		"key":       command.Int(1),
		"recursive": command.Bool(true),
	}, recs[0].Kwargs)
}

func TestParse_Dependency(t *testing.T) {
	recs := parse(t, "based_on arch\ntest1\n")
	require.Len(t, recs, 2)
	assert.Equal(t, "arch", recs[0].Dependency)
	assert.Equal(t, "", recs[1].Dependency)

	recs = parse(t, "based_on scratch\n")
	require.Len(t, recs, 1)
	assert.Equal(t, "", recs[0].Dependency)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]struct {
		input string
		line  int
	}{
		"unterminated double quote": {input: "test1 \"abc\n", line: 1},
		"unterminated single quote": {input: "test1 a\ntest2 'abc\n\n", line: 2},
		"unterminated here doc":     {input: "test1 <<<<abc\ndef\n", line: 1},
		"invalid keyword":           {input: "test1 1a=b\n", line: 1},
		"keyword with dash":         {input: "test1 a-b=c\n", line: 1},
		"illegal escape":            {input: "test1 a\\n\n", line: 1},
		"illegal quoted escape":     {input: "test1 'a\\n'\n", line: 1},
		"unknown command":           {input: "test1\nfrobnicate\n", line: 2},
		"empty command":             {input: "'test1'\n", line: 1},
		"invalid command syntax":    {input: "test1=3\n", line: 1},
		"invalid command name":      {input: "_test1\n", line: 1},
		"duplicate keyword":         {input: "test1 a=1\n    a=2\n", line: 2},
		"validation":                {input: "based_on\n", line: 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parser.New(testRegistry()).ParseString(tc.input, "bad.def")
			require.Error(t, err)
			assert.True(t, errdefs.IsParse(err), "%v", err)

			var e *errdefs.Error
			require.ErrorAs(t, err, &e)
			require.NotNil(t, e.Location)
			assert.Equal(t, "bad.def", e.Location.FileName)
			assert.Equal(t, tc.line, e.Location.LineNumber)
		})
	}
}

func TestParse_UnexpectedEOF(t *testing.T) {
	_, err := parser.New(testRegistry()).ParseString("test1 <<<<abc", "bad.def")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unexpected EOF")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	fn := filepath.Join(dir, "sys.def")
	require.NoError(t, os.WriteFile(fn, []byte("based_on scratch\ntest1 x\n"), 0600))

	recs, err := parser.New(testRegistry()).ParseFile(fn)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, fn, recs[1].Location.FileName)

	_, err = parser.New(testRegistry()).ParseFile(filepath.Join(dir, "missing.def"))
	assert.Error(t, err)
}
