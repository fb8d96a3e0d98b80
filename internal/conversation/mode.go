package conversation

import (
	"strings"
	"sync"
)

type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeGame        Mode = "game"
)

// GameContext identifies the game a Game-mode conversation is about. It
// only carries meaning while the mode is ModeGame.
type GameContext struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// ModeState holds the active conversation mode and the selected game.
// Switching to interactive always clears the game context.
type ModeState struct {
	mu   sync.Mutex
	mode Mode
	game *GameContext
}

func NewModeState() *ModeState {
	return &ModeState{mode: ModeInteractive}
}

func (m *ModeState) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Switch changes the mode and reports whether anything changed. The game
// context is cleared on every switch, in either direction.
func (m *ModeState) Switch(mode Mode) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == m.mode {
		return false
	}
	m.mode = mode
	m.game = nil
	return true
}

// SelectGame records the chosen game. It reports false while the mode is
// not ModeGame.
func (m *ModeState) SelectGame(game GameContext) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mode != ModeGame {
		return false
	}
	m.game = &game
	return true
}

func (m *ModeState) Game() *GameContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.game == nil {
		return nil
	}
	g := *m.game
	return &g
}

func (m *ModeState) ClearGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.game = nil
}

// guidancePrompt is sent to the interactive endpoint when the user speaks
// in game mode without having picked a game yet.
const guidancePrompt = "The user wants to play a game but has not selected one yet. " +
	"Gently encourage them to choose a game from the list. Their message was: "

// isGuidanceReply reports whether a reply should trigger the game
// selection prompt. Heuristic keyword match on the reply text, known to
// misfire on unrelated replies mentioning games.
func isGuidanceReply(mode Mode, hasGame bool, reply string) bool {
	if mode != ModeGame || hasGame {
		return false
	}
	lower := strings.ToLower(reply)
	for _, keyword := range []string{"game", "select", "choose"} {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
