package chrome

import (
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrProtocolError     = errors.New("protocol error")
	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrNavigationFailed  = errors.New("navigation failed")
	ErrWaitTimeout       = errors.New("wait timeout")
	ErrElementNotFound   = errors.New("element not found")
)

// ProtocolError represents an error returned by the Chrome DevTools Protocol.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return ErrProtocolError
}

// JSError is an uncaught exception raised while evaluating script in a page
// or frame.
type JSError struct {
	Text string
}

func (e *JSError) Error() string {
	return "JS exception: " + e.Text
}

// TargetInfo contains information about a browser target (tab/page).
type TargetInfo struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Viewport is the emulated page size in CSS pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WaitOptions configures WaitForSelector.
type WaitOptions struct {
	Timeout time.Duration
	// Visible also requires the element to be rendered: not
	// visibility:hidden and with a non-empty bounding box.
	Visible bool
}

// frameTreeNode represents a node in the frame tree (used for recursive parsing).
type frameTreeNode struct {
	Frame struct {
		ID       string `json:"id"`
		ParentID string `json:"parentId"`
		Name     string `json:"name"`
		URL      string `json:"url"`
	} `json:"frame"`
	ChildFrames []frameTreeNode `json:"childFrames"`
}

// evalResponse is the shape of Runtime.evaluate results.
type evalResponse struct {
	Result struct {
		Type        string      `json:"type"`
		Value       interface{} `json:"value"`
		Description string      `json:"description,omitempty"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text      string `json:"text"`
		Exception *struct {
			Description string `json:"description"`
		} `json:"exception,omitempty"`
	} `json:"exceptionDetails,omitempty"`
}

func (r *evalResponse) err() error {
	if r.ExceptionDetails == nil {
		return nil
	}
	text := r.ExceptionDetails.Text
	if r.ExceptionDetails.Exception != nil && r.ExceptionDetails.Exception.Description != "" {
		text = r.ExceptionDetails.Exception.Description
	}
	return &JSError{Text: text}
}
