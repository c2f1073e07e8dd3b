package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason   = "reason"
	MetaStage    = "stage"
	MetaField    = "field"
	MetaSelector = "selector"
	MetaURL      = "url"
	MetaCategory = "category"
	MetaPath     = "path"

	StageProvisioning = "provisioning"
	StageBrowser      = "browser"
	StageNavigation   = "navigation"
	StageSignIn       = "sign_in"
	StageFreePlay     = "free_play"
	StageBonus        = "bonus"
	StageTeardown     = "teardown"

	CodeInternal        = "internal"
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeUnavailable     = "unavailable"
	CodeTimeout         = "timeout"
	CodeBrowserNotReady = "browser_not_ready"
	CodeActionFailed    = "action_failed"
	CodeSignInFailed    = "sign_in_failed"
	CodeDataFault       = "data_fault"
	CodeDownloadFailed  = "download_failed"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}
