package engine

import (
	"errors"
	"reflect"
)

var (
	ErrRegistryFull  = errors.New("engine: command table is full")
	ErrDuplicateName = errors.New("engine: command name already registered")
	ErrDuplicateCode = errors.New("engine: command code already registered")
	ErrNoFreeCode    = errors.New("engine: no unused command code left")
	ErrNilHandler    = errors.New("engine: handler must not be nil")
)

// Handler is application logic invoked for a dispatched command. It
// reads arguments and writes replies through the engine, then calls
// Done. Returning false means the handler did not finish the protocol;
// the engine latches a handler fault and finalizes on its behalf.
// Returning true without calling Done keeps the command open: the
// engine re-invokes the handler once per Service tick until it
// completes (deferred completion).
type Handler interface {
	ServeCommand(e *Engine) bool
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(e *Engine) bool

func (f HandlerFunc) ServeCommand(e *Engine) bool { return f(e) }

// Command is one registry record. Name addresses it in text mode, Code
// in binary mode. Name may be empty for binary-only commands.
type Command struct {
	Name    string
	Code    uint8
	Handler Handler
	Help    string

	// Origin tags where the record came from (builtin, app, ...).
	// Informational only.
	Origin string
}

type regSpec struct {
	cmd     Command
	codeSet bool
}

// RegisterOption tweaks a record at registration time.
type RegisterOption func(*regSpec)

// WithCode pins the command code instead of taking the next free one.
func WithCode(code uint8) RegisterOption {
	return func(s *regSpec) {
		s.cmd.Code = code
		s.codeSet = true
	}
}

// WithHelp attaches a human-readable description.
func WithHelp(help string) RegisterOption {
	return func(s *regSpec) { s.cmd.Help = help }
}

// WithOrigin tags the record's origin.
func WithOrigin(origin string) RegisterOption {
	return func(s *regSpec) { s.cmd.Origin = origin }
}

// Register adds a command record. name may be empty for code-addressed
// commands. Without WithCode the next unused code is assigned. Capacity
// and name/code collisions are rejected, never silently dropped.
func (e *Engine) Register(name string, h Handler, opts ...RegisterOption) error {
	if h == nil {
		return ErrNilHandler
	}

	spec := regSpec{cmd: Command{Name: name, Handler: h}}
	for _, opt := range opts {
		opt(&spec)
	}

	if len(e.commands) == cap(e.commands) {
		e.setFault(FaultTableFull)
		return ErrRegistryFull
	}

	if name != "" {
		for i := range e.commands {
			if e.commands[i].Name == name {
				return ErrDuplicateName
			}
		}
	}

	if spec.codeSet {
		for i := range e.commands {
			if e.commands[i].Code == spec.cmd.Code {
				return ErrDuplicateCode
			}
		}
	} else {
		code, ok := e.nextFreeCode()
		if !ok {
			return ErrNoFreeCode
		}
		spec.cmd.Code = code
	}

	e.commands = append(e.commands, spec.cmd)
	return nil
}

func (e *Engine) nextFreeCode() (uint8, bool) {
	for code := 0; code <= 0xFF; code++ {
		used := false
		for i := range e.commands {
			if int(e.commands[i].Code) == code {
				used = true
				break
			}
		}
		if !used {
			return uint8(code), true
		}
	}
	return 0, false
}

// Unregister removes the record with the given name, preserving the
// order of the rest. Reports whether a record was removed.
func (e *Engine) Unregister(name string) bool {
	for i := range e.commands {
		if e.commands[i].Name == name && name != "" {
			e.removeAt(i)
			return true
		}
	}
	return false
}

// UnregisterCode removes the record with the given code.
func (e *Engine) UnregisterCode(code uint8) bool {
	for i := range e.commands {
		if e.commands[i].Code == code {
			e.removeAt(i)
			return true
		}
	}
	return false
}

// UnregisterHandler removes the first record carrying exactly this
// handler value.
func (e *Engine) UnregisterHandler(h Handler) bool {
	for i := range e.commands {
		if sameHandler(e.commands[i].Handler, h) {
			e.removeAt(i)
			return true
		}
	}
	return false
}

// sameHandler compares handler identity. HandlerFunc values are not
// comparable with ==, so functions compare by code pointer.
func sameHandler(a, b Handler) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() != bv.Kind() {
		return false
	}
	if av.Kind() == reflect.Func {
		return av.Pointer() == bv.Pointer()
	}
	return a == b
}

func (e *Engine) removeAt(i int) {
	copy(e.commands[i:], e.commands[i+1:])
	e.commands = e.commands[:len(e.commands)-1]
}

// Lookup returns the record for a name, or nil.
func (e *Engine) Lookup(name string) *Command {
	if name == "" {
		return nil
	}
	for i := range e.commands {
		if e.commands[i].Name == name {
			return &e.commands[i]
		}
	}
	return nil
}

// LookupCode returns the record for a code, or nil.
func (e *Engine) LookupCode(code uint8) *Command {
	for i := range e.commands {
		if e.commands[i].Code == code {
			return &e.commands[i]
		}
	}
	return nil
}

func (e *Engine) lookupName(name []byte) *Command {
	for i := range e.commands {
		if matchName(e.commands[i].Name, name) {
			return &e.commands[i]
		}
	}
	return nil
}

// matchName compares without converting the token to a string.
func matchName(s string, tok []byte) bool {
	if s == "" || len(s) != len(tok) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != tok[i] {
			return false
		}
	}
	return true
}

// SetUniversal installs (or, with nil, removes) the override that
// receives every framed command, bypassing the registry.
func (e *Engine) SetUniversal(h Handler) { e.universal = h }

// SetFallback installs the handler invoked when no record matches.
func (e *Engine) SetFallback(h Handler) { e.fallback = h }

// SetFaultHandler installs the handler consulted when a command cycle
// ends with the fault register set. If it returns true the register is
// cleared.
func (e *Engine) SetFaultHandler(h Handler) { e.faultHandler = h }

// Commands reports how many records are registered.
func (e *Engine) Commands() int { return len(e.commands) }

// MaxCommands reports the registry capacity fixed at construction.
func (e *Engine) MaxCommands() int { return cap(e.commands) }

// EachCommand calls fn for every registered record in order.
func (e *Engine) EachCommand(fn func(Command)) {
	for i := range e.commands {
		fn(e.commands[i])
	}
}
