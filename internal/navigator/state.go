package navigator

import (
	"errors"

	"github.com/samftp/samftp/internal/listing"
)

// State 是控制器的生命周期状态。
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateErrored State = "errored"
)

var (
	// ErrEmptyHistory 表示没有可返回的上一级。
	ErrEmptyHistory = errors.New("history is empty")
	// ErrBusy 表示已有导航在进行中。
	ErrBusy = errors.New("navigation already in progress")
	// ErrInvalidURL 表示目标不是绝对 http(s) 地址。
	ErrInvalidURL = errors.New("invalid directory url")
)

// NavigationState 是当前位置与返回栈，栈顶位于切片末尾。
type NavigationState struct {
	CurrentURL string   `json:"current_url"`
	History    []string `json:"history"`
}

func (s NavigationState) clone() NavigationState {
	out := NavigationState{CurrentURL: s.CurrentURL}
	if len(s.History) > 0 {
		out.History = append([]string(nil), s.History...)
	} else {
		out.History = []string{}
	}
	return out
}

// Snapshot 是控制器对外的只读视图。
type Snapshot struct {
	State      State           `json:"state"`
	Navigation NavigationState `json:"navigation"`
	Listing    listing.Listing `json:"listing"`
	FromCache  bool            `json:"from_cache"`
	LastError  string          `json:"last_error,omitempty"`
}
