// Package textutils collects the character/string constants the rest of
// this module's packages (carried over from the teacher library) share
// for path and content-type parsing, config interpolation and routing.
package textutils

const (
	EmptyStr       = ""
	WhiteSpaceStr  = " "
	NewLineString  = "\n"
	ColonStr       = ":"
	SemiColonStr   = ";"
	EqualStr       = "="
	PeriodStr      = "."
	ForwardSlashStr = "/"
	OpenBraceStr   = "{"
	CloseBraceStr  = "}"
)

const (
	ColonChar       = ':'
	EqualChar       = '='
	BackSlashChar   = '\\'
	ForwardSlashChar = '/'
	OpenBraceChar   = '{'
	CloseBraceChar  = '}'
	DollarChar      = '$'
	HashChar        = '#'
	ALowerChar      = 'a'
	ZLowerChar      = 'z'
	AUpperChar      = 'A'
	ZUpperChar      = 'Z'
)
