package util

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("resource not found")
	ErrConflict            = errors.New("concurrent modification, please retry")
	ErrUnknownQuestionType = errors.New("unknown question type")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserDisabled        = errors.New("user disabled")
)

// ValidationError 编排输入不合法，只报告遇到的第一处错误
type ValidationError struct {
	Field            string `json:"field,omitempty"`
	QuestionPosition int    `json:"questionPosition,omitempty"`
	QuestionText     string `json:"questionText,omitempty"`
	Reason           string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.QuestionPosition > 0 {
		if e.Field != "" {
			return fmt.Sprintf("question %d (%q): %s: %s", e.QuestionPosition, e.QuestionText, e.Field, e.Reason)
		}
		return fmt.Sprintf("question %d (%q): %s", e.QuestionPosition, e.QuestionText, e.Reason)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthorizationError 角色不符或非资源所有者，不透露资源是否存在
type AuthorizationError struct {
	cause string
}

func (e *AuthorizationError) Error() string {
	return "not authorized"
}

// Cause 仅用于日志
func (e *AuthorizationError) Cause() string {
	return e.cause
}

func NewAuthorizationError(cause string) error {
	return &AuthorizationError{cause: cause}
}

// StateError 当前生命周期状态不允许该操作
type StateError struct {
	Entity   string   `json:"entity"`
	Current  string   `json:"current"`
	Required []string `json:"required"`
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s is %s, requires %v", e.Entity, e.Current, e.Required)
}

func NewStateError(entity, current string, required ...string) error {
	return &StateError{Entity: entity, Current: current, Required: required}
}

// ConsistencyError 数据关系不一致，本次操作整体放弃
type ConsistencyError struct {
	Reason string
	Err    error
}

func (e *ConsistencyError) Error() string {
	if e.Err != nil {
		return "consistency error: " + e.Reason + ": " + e.Err.Error()
	}
	return "consistency error: " + e.Reason
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

func NewConsistencyError(reason string, err error) error {
	return &ConsistencyError{Reason: reason, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsAuthorization(err error) bool {
	var a *AuthorizationError
	return errors.As(err, &a)
}

func IsState(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}

func IsConsistency(err error) bool {
	var c *ConsistencyError
	return errors.As(err, &c)
}
