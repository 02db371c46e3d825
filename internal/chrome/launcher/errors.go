package launcher

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is matched by every ConfigError.
	ErrConfig = errors.New("invalid launch configuration")
	// ErrHandshakeTimeout means the browser never announced its DevTools endpoint.
	ErrHandshakeTimeout = errors.New("timed out waiting for DevTools endpoint")
	// ErrProcessExited means the browser exited before announcing its endpoint.
	ErrProcessExited = errors.New("browser exited during startup")
)

// ConfigError reports invalid static configuration. It is returned at
// construction time and is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("launch config: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfig
}

// LaunchStage names the step of Launch that failed.
type LaunchStage string

const (
	StageState     LaunchStage = "state"
	StageSpawn     LaunchStage = "spawn"
	StageHandshake LaunchStage = "handshake"
	StageConnect   LaunchStage = "connect"
)

// LaunchError reports a failed launch. The supervisor is back in StateIdle and
// no process is left running.
type LaunchError struct {
	Stage LaunchStage
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching browser (%s): %v", e.Stage, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
