package command_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thepwagner/clrm/command"
)

func TestInterpret(t *testing.T) {
	cases := map[string]command.Value{
		"None":                 command.Null(),
		"True":                 command.Bool(true),
		"False":                command.Bool(false),
		"0o755":                command.Int(493),
		"0O755":                command.Int(493),
		"0755":                 command.Int(493),
		"493":                  command.Int(493),
		"0":                    command.Int(0),
		"0xFF":                 command.Int(255),
		"0Xff":                 command.Int(255),
		"true":                 command.String("true"),
		"0o8":                  command.String("0o8"),
		"0x":                   command.String("0x"),
		"12ab":                 command.String("12ab"),
		"/etc/hostname":        command.String("/etc/hostname"),
		"99999999999999999999": command.String("99999999999999999999"),
	}
	for raw, expected := range cases {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, expected, command.Interpret(raw))
		})
	}
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "None", command.Null().String())
	assert.Equal(t, "True", command.Bool(true).String())
	assert.Equal(t, "493", command.Int(493).String())
	assert.Equal(t, "x", command.String("x").String())
}

func TestValue_JSON(t *testing.T) {
	args := []command.Value{command.Null(), command.Bool(false), command.Int(420), command.String("a b")}
	b, err := json.Marshal(args)
	require.NoError(t, err)
	assert.JSONEq(t, `[null, false, 420, "a b"]`, string(b))

	var decoded []command.Value
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, args, decoded)

	var bad command.Value
	assert.Error(t, json.Unmarshal([]byte(`1.5`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`{}`), &bad))
}
