package commands

import (
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	TypeAdd     Type = "add"
	TypeAccept  Type = "accept"
	TypeDismiss Type = "dismiss"
	TypeModify  Type = "modify"
	TypeRefresh Type = "refresh"
	TypeClear   Type = "clear"
	TypeHistory Type = "history"
	TypeSummary Type = "summary"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AddArgs creates a task: add <title> [p:high] [due:tomorrow] [est:20]
type AddArgs struct {
	Title    string
	Priority string
	Due      string
	Estimate *int
}

type TargetArgs struct {
	Target string
}

// ModifyArgs edits an action: modify <id> [urgency:low] [slot:12:30-13:30] [new title]
type ModifyArgs struct {
	Target  string
	Title   string
	Urgency string
	Slot    string
}

type SummaryArgs struct {
	Date string
}

type Command struct {
	Type    Type
	Raw     string
	Add     *AddArgs
	Target  *TargetArgs
	Modify  *ModifyArgs
	Summary *SummaryArgs
}

var aliases = map[string]Type{
	"a":   TypeAccept,
	"ok":  TypeAccept,
	"d":   TypeDismiss,
	"no":  TypeDismiss,
	"m":   TypeModify,
	"r":   TypeRefresh,
	"log": TypeHistory,
	"sum": TypeSummary,
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]
	typ := Type(head)
	if alias, ok := aliases[head]; ok {
		typ = alias
	}

	switch typ {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeAccept, TypeDismiss:
		return parseTarget(input, typ, args)
	case TypeModify:
		return parseModify(input, args)
	case TypeRefresh, TypeClear, TypeHistory:
		if len(args) > 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes no arguments", typ)}
		}
		return Command{Type: typ, Raw: input}, nil
	case TypeSummary:
		date := ""
		if len(args) > 0 {
			date = args[0]
		}
		return Command{Type: TypeSummary, Raw: input, Summary: &SummaryArgs{Date: date}}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{}
	words := make([]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := option(arg)
		switch {
		case ok && (key == "p" || key == "priority"):
			out.Priority = strings.ToLower(value)
		case ok && key == "due":
			out.Due = value
		case ok && (key == "est" || key == "estimate"):
			n, err := strconv.Atoi(strings.TrimSuffix(value, "m"))
			if err != nil || n < 0 {
				return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid estimate: %s", value)}
			}
			out.Estimate = &n
		default:
			words = append(words, arg)
		}
	}
	out.Title = strings.TrimSpace(strings.Join(words, " "))
	if out.Title == "" {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "add requires a title"}
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parseTarget(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires exactly one action id", typ)}
	}
	return Command{Type: typ, Raw: raw, Target: &TargetArgs{Target: args[0]}}, nil
}

func parseModify(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "modify requires an action id and at least one change"}
	}
	out := ModifyArgs{Target: args[0]}
	words := make([]string, 0, len(args))
	for _, arg := range args[1:] {
		key, value, ok := option(arg)
		switch {
		case ok && key == "urgency":
			out.Urgency = strings.ToLower(value)
		case ok && key == "slot":
			out.Slot = value
		default:
			words = append(words, arg)
		}
	}
	out.Title = strings.TrimSpace(strings.Join(words, " "))
	return Command{Type: TypeModify, Raw: raw, Modify: &out}, nil
}

// option splits key:value tokens for the known option keys only, so titles
// containing colons survive.
func option(arg string) (string, string, bool) {
	key, value, found := strings.Cut(arg, ":")
	if !found || value == "" {
		return "", "", false
	}
	key = strings.ToLower(key)
	switch key {
	case "p", "priority", "due", "est", "estimate", "urgency", "slot":
		return key, value, true
	default:
		return "", "", false
	}
}
