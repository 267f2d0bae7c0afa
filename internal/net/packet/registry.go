package packet

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// SessionState represents the session's current protocol phase.
type SessionState int

const (
	StateHandshake     SessionState = iota
	StateVersionOK                  // received client version, no level yet
	StateInLevel                    // watching a level's NPCs
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateHandshake:
		return "Handshake"
	case StateVersionOK:
		return "VersionOK"
	case StateInLevel:
		return "InLevel"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// ErrEmptyPacket is returned by Dispatch for a zero-length payload.
var ErrEmptyPacket = errors.New("empty packet")

// HandlerFunc is the callback signature for packet handlers.
// The session pointer is passed as an opaque interface to avoid import cycles.
type HandlerFunc func(sess any, r *Reader)

type handlerEntry struct {
	name          string
	fn            HandlerFunc
	allowedStates map[SessionState]bool
}

// Registry maps opcodes to handlers with state-based access control.
type Registry struct {
	handlers map[byte]*handlerEntry
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[byte]*handlerEntry),
		log:      log,
	}
}

// Register maps an opcode to a handler, restricted to the given session states.
func (reg *Registry) Register(opcode byte, name string, states []SessionState, fn HandlerFunc) {
	allowed := make(map[SessionState]bool, len(states))
	for _, s := range states {
		allowed[s] = true
	}
	reg.handlers[opcode] = &handlerEntry{
		name:          name,
		fn:            fn,
		allowedStates: allowed,
	}
}

// Len returns the number of registered opcodes.
func (reg *Registry) Len() int {
	return len(reg.handlers)
}

// Dispatch finds the handler for the opcode in data[0], validates the session
// state, and calls the handler. Unknown opcodes are dropped silently; a state
// mismatch or a handler panic is returned as an error.
func (reg *Registry) Dispatch(sess any, state SessionState, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	opcode := data[0]

	entry, ok := reg.handlers[opcode]
	if !ok {
		reg.log.Debug("未知操作碼", zap.Uint8("opcode", opcode), zap.Int("size", len(data)))
		return nil
	}
	reg.log.Debug("收到封包",
		zap.String("handler", entry.name),
		zap.Int("size", len(data)),
		zap.Stringer("state", state),
	)

	if !entry.allowedStates[state] {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.String("handler", entry.name),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("%s not allowed in state %s", entry.name, state)
	}

	return reg.safeCall(entry, sess, NewReader(data))
}

// safeCall executes a handler with panic recovery so one bad packet
// cannot take down the game loop.
func (reg *Registry) safeCall(entry *handlerEntry, sess any, r *Reader) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.String("handler", entry.name),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler %s panic: %v", entry.name, rec)
		}
	}()
	entry.fn(sess, r)
	return nil
}
