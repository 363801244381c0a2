package location

import (
	"fmt"
	"strings"
)

// BuiltInFile names the pseudo file of records the parser synthesizes.
const BuiltInFile = "<BUILT_IN>"

// Location points at the definition file line a record or diagnostic came from.
type Location struct {
	FileName    string `json:"file"`
	LineNumber  int    `json:"line"`
	LineOffset  int    `json:"offset,omitempty"`
	Description string `json:"description,omitempty"`
}

func New(fileName string, lineNumber int) Location {
	if lineNumber < 1 {
		lineNumber = 1
	}
	return Location{FileName: fileName, LineNumber: lineNumber}
}

// BuiltIn is the location of the synthetic _setup and _teardown records.
func BuiltIn() Location {
	return New(BuiltInFile, 1)
}

func (l Location) IsValid() bool {
	return l.FileName != ""
}

func (l Location) NextLine() Location {
	return Location{
		FileName:    l.FileName,
		LineNumber:  l.LineNumber + 1,
		Description: l.Description,
	}
}

// CreateChild returns the location of a nested execution started from l.
// An empty fileName keeps the parent's file.
func (l Location) CreateChild(fileName, description string) Location {
	if fileName == "" {
		fileName = l.FileName
	}
	return Location{
		FileName:    fileName,
		LineNumber:  l.LineNumber,
		LineOffset:  l.LineOffset + 1,
		Description: description,
	}
}

func (l Location) WithDescription(description string) Location {
	l.Description = description
	return l
}

// Short renders "file:line", the form used in error messages.
func (l Location) Short() string {
	if l.LineNumber <= 0 {
		return l.FileName
	}
	return fmt.Sprintf("%s:%d", l.FileName, l.LineNumber)
}

func (l Location) String() string {
	var sb strings.Builder
	if l.FileName == "" {
		sb.WriteString("<UNKNOWN>")
	} else {
		sb.WriteString(l.FileName)
	}
	if l.LineNumber > 0 {
		fmt.Fprintf(&sb, ":%d", l.LineNumber)
		if l.LineOffset > 0 {
			fmt.Fprintf(&sb, "+%d", l.LineOffset)
		}
	}
	if l.Description != "" {
		fmt.Fprintf(&sb, " %q", l.Description)
	}
	return sb.String()
}
