package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"pkt.systems/tabcast/schema"
)

// CommandKind identifies a UI command.
type CommandKind string

const (
	// CommandPageLoaded asks for the toolbar to be injected again.
	CommandPageLoaded CommandKind = "pageLoaded"
	// CommandNavigate points the active tab at user input.
	CommandNavigate CommandKind = "navigate"
	// CommandNewTab opens a tab.
	CommandNewTab CommandKind = "newTab"
	// CommandCloseTab closes a tab by id.
	CommandCloseTab CommandKind = "closeTab"
	// CommandSwitchTab activates a tab by id.
	CommandSwitchTab CommandKind = "switchTab"
	// CommandCloseCurrentTab closes whichever tab is active when it is dispatched.
	CommandCloseCurrentTab CommandKind = "closeCurrentTab"
)

// Command is one decoded UI command.
type Command struct {
	Kind  CommandKind
	Input string
	TabID schema.TabID
	// Source names the channel the command arrived on (page, http).
	Source string
}

func (c Command) String() string {
	switch c.Kind {
	case CommandNavigate:
		return fmt.Sprintf("%s(%q)", c.Kind, c.Input)
	case CommandCloseTab, CommandSwitchTab:
		return fmt.Sprintf("%s(%d)", c.Kind, c.TabID)
	default:
		return string(c.Kind)
	}
}

// ErrEmptyMessage indicates a page message carried no known command.
var ErrEmptyMessage = errors.New("message carries no command")

// DecodeMessage decodes a page message. One message may carry several keys; the
// resulting commands follow the order navigate, newTab, switchTab, closeTab,
// closeCurrentTab, pageLoaded. Each key is read on its own, so a key with the wrong
// type, a non-integer or a negative tab id is skipped without dropping the others.
func DecodeMessage(data []byte) ([]Command, error) {
	var msg map[string]json.RawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode page message: %w", err)
	}
	var cmds []Command
	if input, ok := rawString(msg[string(CommandNavigate)]); ok {
		cmds = append(cmds, Command{Kind: CommandNavigate, Input: input, Source: "page"})
	}
	if rawTrue(msg[string(CommandNewTab)]) {
		cmds = append(cmds, Command{Kind: CommandNewTab, Source: "page"})
	}
	if id, ok := rawTabID(msg[string(CommandSwitchTab)]); ok {
		cmds = append(cmds, Command{Kind: CommandSwitchTab, TabID: id, Source: "page"})
	}
	if id, ok := rawTabID(msg[string(CommandCloseTab)]); ok {
		cmds = append(cmds, Command{Kind: CommandCloseTab, TabID: id, Source: "page"})
	}
	if rawTrue(msg[string(CommandCloseCurrentTab)]) {
		cmds = append(cmds, Command{Kind: CommandCloseCurrentTab, Source: "page"})
	}
	if rawTrue(msg[string(CommandPageLoaded)]) {
		cmds = append(cmds, Command{Kind: CommandPageLoaded, Source: "page"})
	}
	if len(cmds) == 0 {
		return nil, ErrEmptyMessage
	}
	return cmds, nil
}

func rawString(raw json.RawMessage) (string, bool) {
	var value string
	if raw == nil || string(raw) == "null" || json.Unmarshal(raw, &value) != nil {
		return "", false
	}
	return value, true
}

func rawTrue(raw json.RawMessage) bool {
	var value bool
	return raw != nil && json.Unmarshal(raw, &value) == nil && value
}

func rawTabID(raw json.RawMessage) (schema.TabID, bool) {
	if raw == nil {
		return 0, false
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return 0, false
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, false
	}
	id, err := number.Int64()
	if err != nil || id < 0 {
		return 0, false
	}
	return schema.TabID(id), true
}
