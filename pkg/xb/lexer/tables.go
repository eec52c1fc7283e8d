package lexer

import "regexp"

// keywordList is every reserved word of TI-99/4A Extended Basic,
// including the subprogram names reached through CALL.
var keywordList = []string{
	"ABS", "ACCEPT", "VALIDATE", "AT", "BEEP", "ERASE", "ALL", "SIZE", "UALPHA", "DIGIT", "NUMERIC",
	"ASC", "ATN", "BREAK", "BYE", "CALL", "CHAR", "CHARPAT", "CHARSET", "CHR$", "CLEAR", "CLOSE", "DELETE",
	"COINC", "COLOR", "CONTINUE", "CON", "COS", "DATA", "DEF", "DELSPRITE", "DIM", "DISPLAY", "USING",
	"DISTANCE", "END", "EOF", "ERR", "EXP", "FOR", "TO", "STEP", "GCHAR", "GOSUB", "GO", "SUB", "GOTO",
	"HCHAR", "IF", "THEN", "ELSE", "IMAGE", "INIT", "INPUT", "REC", "INT", "JOYST", "KEY", "LEN", "LET",
	"LINK", "LINPUT", "LIST", "LOAD", "LOCATE", "LOG", "MAGNIFY", "MAX", "MERGE", "MIN", "MOTION", "NEW",
	"NEXT", "NUMBER", "NUM", "OLD", "ON", "STOP", "ERROR", "WARNING", "OPEN", "OPTION", "BASE",
	"PATTERN", "PEEK", "PI", "POS", "POSITION", "PRINT", "RANDOMIZE", "REM", "RESEQUENCE", "RES",
	"RESTORE", "RETURN", "RND", "RPT$", "RUN", "SAVE", "PROTECTED", "SAY", "SCREEN", "SEG$", "SGN",
	"SIN", "SOUND", "SPGET", "SPRITE", "SQR", "STR$", "SUBEND", "SUBEXIT", "TAB",
	"TAN", "TRACE", "UNBREAK", "UNTRACE", "VAL", "VCHAR", "VERSION", "AND", "APPEND", "FIXED", "INTERNAL",
	"NOT", "OR", "OUTPUT", "PERMANENT", "READ", "RELATIVE", "SEQUENTIAL", "UPDATE", "VARIABLE", "XOR",
}

// branchList holds the keywords after which a number is a target line.
var branchList = []string{
	"GOTO", "GO", "GOSUB", "IF", "THEN", "ELSE", "RESTORE", "ON", "BREAK", "ERROR", "CONTINUE", "RETURN", "RUN",
}

var (
	keywords    = toSet(keywordList)
	branchWords = toSet(branchList)
)

// Structural keywords.
const (
	kwFor     = "FOR"
	kwNext    = "NEXT"
	kwSub     = "SUB"
	kwSubEnd  = "SUBEND"
	kwIf      = "IF"
	kwThen    = "THEN"
	kwElse    = "ELSE"
	kwRem     = "REM"
	kwCall    = "CALL"
	kwOn      = "ON"
	kwGoto    = "GOTO"
	kwGosub   = "GOSUB"
	quoteChar = '"'
)

var (
	// statementSeparator splits several instructions on one line.
	statementSeparator = regexp.MustCompile(`\s*::\s*`)
	numberPattern      = regexp.MustCompile(`^[-+]?([0-9]{0,10}[.])?[0-9]{1,10}([eE][-+]?\d+)?$`)
	hexPattern         = regexp.MustCompile(`^[\da-fA-F]{2,}$`)
)

// isSeparator reports whether c ends a token.
func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\v', '\f', '\r', '\n',
		',', ';', ':', '(', ')':
		return true
	}
	return isOperator(c)
}

// isOperator reports whether c is an arithmetic, string or comparison operator.
func isOperator(c byte) bool {
	switch c {
	case '+', '*', '-', '/', '^', '&', '<', '>', '=':
		return true
	}
	return false
}

// IsKeyword reports whether word is a reserved word.
func IsKeyword(word string) bool {
	return keywords[word]
}

// CanBranch reports whether a number following word is read as a line target.
func CanBranch(word string) bool {
	return branchWords[word]
}

// Keywords returns a copy of the reserved word list in table order.
func Keywords() []string {
	out := make([]string, len(keywordList))
	copy(out, keywordList)
	return out
}

// IsNumber reports whether s is a numeric literal: at most ten digits on
// each side of an optional decimal point, then an optional exponent.
func IsNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// IsHex reports whether s is two or more hexadecimal digits.
func IsHex(s string) bool {
	return hexPattern.MatchString(s)
}

func toSet(words []string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
