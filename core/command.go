package core

import "errors"

var (
	ErrUnknownCommand = errors.New("unknown message ID")
	ErrNotCommand     = errors.New("message is robot -> host only")
)

// CommandHandler decodes its own arguments from data
type CommandHandler func(data *[]byte) error

// Command is one entry of the message dictionary. Entries without a
// handler are robot -> host messages.
type Command struct {
	ID      uint16
	Name    string
	Format  string // e.g. "enable=%c"
	Handler CommandHandler
}

// CommandRegistry numbers messages in registration order. It is filled
// at startup and then only read from the main loop.
type CommandRegistry struct {
	commands   []Command
	dictionary string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{}
}

// Register adds a message and returns its ID. Registering a name twice
// returns the first ID.
func (r *CommandRegistry) Register(name, format string, handler CommandHandler) uint16 {
	if cmd, ok := r.GetCommandByName(name); ok {
		return cmd.ID
	}

	id := uint16(len(r.commands))
	r.commands = append(r.commands, Command{ID: id, Name: name, Format: format, Handler: handler})

	line := name
	if format != "" {
		line += " " + format
	}
	r.dictionary += line + "\n"
	return id
}

// GetCommand looks a message up by ID
func (r *CommandRegistry) GetCommand(id uint16) (Command, bool) {
	if int(id) >= len(r.commands) {
		return Command{}, false
	}
	return r.commands[id], true
}

// GetCommandByName looks a message up by name
func (r *CommandRegistry) GetCommandByName(name string) (Command, bool) {
	for _, cmd := range r.commands {
		if cmd.Name == name {
			return cmd, true
		}
	}
	return Command{}, false
}

// Dispatch runs the handler of a host -> robot message
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return ErrUnknownCommand
	}
	if cmd.Handler == nil {
		return ErrNotCommand
	}
	return cmd.Handler(data)
}

// GetDictionary returns one "name format" line per message, in ID order
func (r *CommandRegistry) GetDictionary() string {
	return r.dictionary
}
