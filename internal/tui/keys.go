package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Record   key.Binding
	Toggle   key.Binding
	Validate key.Binding
	Fail     key.Binding
	Prev     key.Binding
	Next     key.Binding
	Redo     key.Binding
	Clock    key.Binding
	Reset    key.Binding
	Clear    key.Binding
	ResetAll key.Binding
	Save     key.Binding
	Yes      key.Binding
	No       key.Binding
	Choice   key.Binding
	Score    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Record:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "record/resume")),
		Toggle:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "search")),
		Validate: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "validate")),
		Fail:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "fail")),
		Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←", "prev")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→", "next")),
		Redo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "redo")),
		Clock:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start/pause")),
		Reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset clock")),
		Clear:    key.NewBinding(key.WithKeys("backspace", "delete"), key.WithHelp("⌫", "reset subject")),
		ResetAll: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reset session")),
		Save:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save result")),
		Yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y/n", "yes/no")),
		No:       key.NewBinding(key.WithKeys("n")),
		Choice:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "next choice")),
		Score:    key.NewBinding(key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("0-9", "score")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// forKind hides bindings that do nothing for the activity engine.
func (k keyMap) forKind(interval, checkpoint, observation bool) keyMap {
	k.Record.SetEnabled(interval)
	k.Redo.SetEnabled(interval)
	k.Toggle.SetEnabled(checkpoint)
	k.Validate.SetEnabled(checkpoint)
	k.Fail.SetEnabled(checkpoint)
	k.Prev.SetEnabled(checkpoint || observation)
	k.Next.SetEnabled(checkpoint || observation)
	k.Yes.SetEnabled(observation)
	k.No.SetEnabled(observation)
	k.Choice.SetEnabled(observation)
	k.Score.SetEnabled(observation)
	return k
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Record, k.Toggle, k.Validate, k.Fail, k.Yes, k.Score, k.Clock, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Prev, k.Next},
		{k.Record, k.Redo, k.Toggle, k.Validate, k.Fail},
		{k.Yes, k.Choice, k.Score},
		{k.Clock, k.Reset, k.Clear, k.ResetAll},
		{k.Save, k.Help, k.Quit},
	}
}
