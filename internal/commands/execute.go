package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add     func(AddArgs) (Result, error)
	Accept  func(TargetArgs) (Result, error)
	Dismiss func(TargetArgs) (Result, error)
	Modify  func(ModifyArgs) (Result, error)
	Refresh func() (Result, error)
	Clear   func() (Result, error)
	History func() (Result, error)
	Summary func(SummaryArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeAccept:
		if handlers.Accept == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Accept(*cmd.Target)
	case TypeDismiss:
		if handlers.Dismiss == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Dismiss(*cmd.Target)
	case TypeModify:
		if handlers.Modify == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Modify(*cmd.Modify)
	case TypeRefresh:
		if handlers.Refresh == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Refresh()
	case TypeClear:
		if handlers.Clear == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Clear()
	case TypeHistory:
		if handlers.History == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.History()
	case TypeSummary:
		if handlers.Summary == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Summary(*cmd.Summary)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
