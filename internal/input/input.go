// Package input maps glfw keys and mouse buttons to engine control actions
// and tracks per-frame press and release edges.
package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action is a logical control, not a physical key.
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionFast
	ActionMenu
	ActionReloadShaders
	ActionCapture
	ActionToggleStats
	ActionTogglePipeline
	ActionCyclePixelation
	ActionMouseLeft
	ActionCount
)

// Manager holds bindings and button state. Events arrive from glfw
// callbacks; the frame reads edges and calls EndFrame when done.
type Manager struct {
	mu sync.RWMutex

	keys    map[glfw.Key][]Action
	buttons map[glfw.MouseButton][]Action

	down         [ActionCount]bool
	justPressed  [ActionCount]bool
	justReleased [ActionCount]bool

	cursorX, cursorY float64
}

// New returns a manager with the default bindings: WASD plus Space and
// Left Ctrl to fly, Shift to go faster, Escape for the settings menu,
// F5 to reload shaders, F12 to capture, F3 for the stats overlay, F2 to
// switch pipelines and P to cycle pixelation.
func New() *Manager {
	m := &Manager{
		keys:    make(map[glfw.Key][]Action),
		buttons: make(map[glfw.MouseButton][]Action),
	}
	for key, a := range map[glfw.Key]Action{
		glfw.KeyW:           ActionMoveForward,
		glfw.KeyS:           ActionMoveBackward,
		glfw.KeyA:           ActionMoveLeft,
		glfw.KeyD:           ActionMoveRight,
		glfw.KeySpace:       ActionMoveUp,
		glfw.KeyLeftControl: ActionMoveDown,
		glfw.KeyLeftShift:   ActionFast,
		glfw.KeyRightShift:  ActionFast,
		glfw.KeyEscape:      ActionMenu,
		glfw.KeyF5:          ActionReloadShaders,
		glfw.KeyF12:         ActionCapture,
		glfw.KeyF3:          ActionToggleStats,
		glfw.KeyF2:          ActionTogglePipeline,
		glfw.KeyP:           ActionCyclePixelation,
	} {
		m.BindKey(key, a)
	}
	m.BindMouseButton(glfw.MouseButtonLeft, ActionMouseLeft)
	return m
}

func valid(a Action) bool { return a >= 0 && a < ActionCount }

// BindKey adds a binding. A key may drive several actions and an action
// may have several keys.
func (m *Manager) BindKey(key glfw.Key, a Action) {
	if !valid(a) {
		return
	}
	m.mu.Lock()
	m.keys[key] = append(m.keys[key], a)
	m.mu.Unlock()
}

func (m *Manager) UnbindKey(key glfw.Key) {
	m.mu.Lock()
	delete(m.keys, key)
	m.mu.Unlock()
}

func (m *Manager) BindMouseButton(b glfw.MouseButton, a Action) {
	if !valid(a) {
		return
	}
	m.mu.Lock()
	m.buttons[b] = append(m.buttons[b], a)
	m.mu.Unlock()
}

// HandleKey records a key event. Repeats count as held.
func (m *Manager) HandleKey(key glfw.Key, action glfw.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(m.keys[key], action == glfw.Press || action == glfw.Repeat)
}

// HandleMouseButton records a mouse button event.
func (m *Manager) HandleMouseButton(b glfw.MouseButton, action glfw.Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(m.buttons[b], action == glfw.Press)
}

// HandleCursor records the pointer position in window pixels.
func (m *Manager) HandleCursor(x, y float64) {
	m.mu.Lock()
	m.cursorX, m.cursorY = x, y
	m.mu.Unlock()
}

func (m *Manager) apply(actions []Action, pressed bool) {
	for _, a := range actions {
		if pressed && !m.down[a] {
			m.justPressed[a] = true
		}
		if !pressed && m.down[a] {
			m.justReleased[a] = true
		}
		m.down[a] = pressed
	}
}

// Attach installs the key, mouse button and cursor callbacks on win.
func (m *Manager) Attach(win *glfw.Window) {
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		m.HandleKey(key, action)
	})
	win.SetMouseButtonCallback(func(_ *glfw.Window, b glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		m.HandleMouseButton(b, action)
	})
	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		m.HandleCursor(x, y)
	})
}

// EndFrame clears the edge flags. Call it once per frame after every
// consumer has read them.
func (m *Manager) EndFrame() {
	m.mu.Lock()
	clear(m.justPressed[:])
	clear(m.justReleased[:])
	m.mu.Unlock()
}

// Held reports whether the action is down.
func (m *Manager) Held(a Action) bool {
	if !valid(a) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.down[a]
}

// JustPressed reports whether the action went down since the last EndFrame.
func (m *Manager) JustPressed(a Action) bool {
	if !valid(a) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.justPressed[a]
}

func (m *Manager) JustReleased(a Action) bool {
	if !valid(a) {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.justReleased[a]
}

// Cursor returns the last pointer position.
func (m *Manager) Cursor() (x, y float32) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float32(m.cursorX), float32(m.cursorY)
}

// Axis returns -1, 0 or 1 from a pair of opposing actions.
func (m *Manager) Axis(neg, pos Action) float32 {
	var v float32
	if m.Held(pos) {
		v++
	}
	if m.Held(neg) {
		v--
	}
	return v
}
