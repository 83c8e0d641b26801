package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of the analysis pipeline.
type ErrorKind string

const (
	KindInput             ErrorKind = "input"
	KindEmptyInput        ErrorKind = "empty_input"
	KindExtraction        ErrorKind = "extraction"
	KindIndex             ErrorKind = "index"
	KindEmbeddingMismatch ErrorKind = "embedding_mismatch"
	KindModelCall         ErrorKind = "model_call"
	KindModelQuota        ErrorKind = "model_quota"
	KindJudge             ErrorKind = "judge"
	KindSynthesis         ErrorKind = "synthesis"
	KindLimitExceeded     ErrorKind = "limit_exceeded"
)

var errorCodes = map[ErrorKind]string{
	KindInput:             "INPUT_INVALID",
	KindEmptyInput:        "EMPTY_INPUT",
	KindExtraction:        "EXTRACTION_FAILED",
	KindIndex:             "INDEX_UNAVAILABLE",
	KindEmbeddingMismatch: "EMBEDDING_MISMATCH",
	KindModelCall:         "MODEL_UNAVAILABLE",
	KindModelQuota:        "MODEL_QUOTA_EXCEEDED",
	KindJudge:             "JUDGE_FAILED",
	KindSynthesis:         "SYNTHESIS_FAILED",
	KindLimitExceeded:     "LIMIT_EXCEEDED",
}

// Code returns the stable error code of the kind.
func (k ErrorKind) Code() string {
	if code, ok := errorCodes[k]; ok {
		return code
	}
	return "INTERNAL"
}

// Error is the typed error returned by all pipeline components.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrJudge) holds for every judge error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Code returns the stable error code.
func (e *Error) Code() string {
	return e.Kind.Code()
}

var (
	ErrInput             = &Error{Kind: KindInput}
	ErrEmptyInput        = &Error{Kind: KindEmptyInput}
	ErrExtraction        = &Error{Kind: KindExtraction}
	ErrIndex             = &Error{Kind: KindIndex}
	ErrEmbeddingMismatch = &Error{Kind: KindEmbeddingMismatch}
	ErrModelCall         = &Error{Kind: KindModelCall}
	ErrModelQuota        = &Error{Kind: KindModelQuota}
	ErrJudge             = &Error{Kind: KindJudge}
	ErrSynthesis         = &Error{Kind: KindSynthesis}
	ErrLimitExceeded     = &Error{Kind: KindLimitExceeded}
)

func NewInputError(format string, args ...any) error {
	return &Error{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

func NewEmptyInputError(what string) error {
	return &Error{Kind: KindEmptyInput, Message: what + " is empty"}
}

func NewExtractionError(path string, err error) error {
	return &Error{Kind: KindExtraction, Message: "extract " + path, Err: err}
}

func NewIndexError(message string, err error) error {
	return &Error{Kind: KindIndex, Message: message, Err: err}
}

func NewEmbeddingMismatchError(format string, args ...any) error {
	return &Error{Kind: KindEmbeddingMismatch, Message: fmt.Sprintf(format, args...)}
}

func NewModelCallError(message string, err error) error {
	return &Error{Kind: KindModelCall, Message: message, Err: err}
}

func NewModelQuotaError(message string, err error) error {
	return &Error{Kind: KindModelQuota, Message: message, Err: err}
}

func NewJudgeError(err error) error {
	return &Error{Kind: KindJudge, Message: "judge evidence", Err: err}
}

func NewSynthesisError(err error) error {
	return &Error{Kind: KindSynthesis, Message: "synthesize answer", Err: err}
}

func NewLimitExceededError(format string, args ...any) error {
	return &Error{Kind: KindLimitExceeded, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost typed error in the chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the stable code of err, INTERNAL for untyped errors.
func CodeOf(err error) string {
	return KindOf(err).Code()
}

// IsQuotaError reports quota, billing or credential failures anywhere in the chain.
// Callers should reconfigure instead of retrying those.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrModelQuota)
}

// IsTransientModelError reports model failures that may succeed on retry.
func IsTransientModelError(err error) bool {
	return errors.Is(err, ErrModelCall) && !IsQuotaError(err)
}

// PipelineError records the last state a failed analysis reached before FAILED.
type PipelineError struct {
	State     PipelineState `json:"state"`
	RequestID string        `json:"request_id"`
	Err       error         `json:"-"`
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("analysis %s failed after %s: %v", e.RequestID, e.State, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Kind returns the kind of the originating component error.
func (e *PipelineError) Kind() ErrorKind {
	return KindOf(e.Err)
}

// Code returns the stable code of the originating component error.
func (e *PipelineError) Code() string {
	return e.Kind().Code()
}
