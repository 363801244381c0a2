package command

import (
	"context"

	"github.com/thepwagner/clrm/location"
)

// Command is a named unit of behaviour invoked from definition files.
type Command interface {
	Name() string
	Syntax() string
	Help() string
	// Validate checks arguments at parse time and returns the declared base
	// system, or "" for commands that declare none.
	Validate(loc location.Location, args []Value, kwargs map[string]Value) (string, error)
	Invoke(ctx context.Context, loc location.Location, sys System, args []Value, kwargs map[string]Value) error
}

// Tooled is implemented by commands that shell out to host binaries.
type Tooled interface {
	Tools() []string
}

type ValidateFunc func(loc location.Location, args []Value, kwargs map[string]Value) (string, error)
type InvokeFunc func(ctx context.Context, loc location.Location, sys System, args []Value, kwargs map[string]Value) error

// Definition implements Command from plain functions.
type Definition struct {
	CommandName string
	SyntaxDoc   string
	HelpDoc     string
	Binaries    []string
	ValidateFn  ValidateFunc
	InvokeFn    InvokeFunc
}

var _ Command = (*Definition)(nil)
var _ Tooled = (*Definition)(nil)

func (d *Definition) Name() string   { return d.CommandName }
func (d *Definition) Syntax() string { return d.SyntaxDoc }
func (d *Definition) Help() string   { return d.HelpDoc }
func (d *Definition) Tools() []string {
	return d.Binaries
}

func (d *Definition) Validate(loc location.Location, args []Value, kwargs map[string]Value) (string, error) {
	if d.ValidateFn == nil {
		return "", ExpectNoArguments(loc, d.CommandName, args, kwargs)
	}
	return d.ValidateFn(loc, args, kwargs)
}

func (d *Definition) Invoke(ctx context.Context, loc location.Location, sys System, args []Value, kwargs map[string]Value) error {
	if d.InvokeFn == nil {
		return nil
	}
	return d.InvokeFn(ctx, loc, sys, args, kwargs)
}
