package chatbot

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

type step int

const (
	stepNone step = iota
	stepName
	stepCityManual
	stepFilterMin
	stepFilterMax
	stepFilterCity
)

// form is the in-progress text input of one user. Inline-button steps carry
// their value in the callback data and need no state.
type form struct {
	step      step
	filterMin int
}

// forms holds per-user input state. It lives in memory only: a restart drops
// half-filled forms, never saved data.
type forms struct {
	mu     sync.Mutex
	byUser map[int64]form
}

func newForms() *forms {
	return &forms{byUser: make(map[int64]form)}
}

func (f *forms) get(id int64) form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byUser[id]
}

func (f *forms) set(id int64, st form) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st.step == stepNone {
		delete(f.byUser, id)
		return
	}
	f.byUser[id] = st
}

func (f *forms) clear(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byUser, id)
}

const (
	maxNameRunes = 50
	maxCityRunes = 30
	minFilterAge = 18
	maxFilterAge = 100
)

func validName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n == 0 || n > maxNameRunes {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func validCity(s string) bool {
	n := utf8.RuneCountInString(s)
	if n == 0 || n > maxCityRunes || strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// parseFilterAge returns the age or the message to reply with.
func parseFilterAge(s string) (int, string) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, msgNotNumber
	}
	if v < minFilterAge || v > maxFilterAge {
		return 0, msgAgeRange
	}
	return v, ""
}

// parseAgeBracket reads "age_<min>_<max>" and returns the upper bound.
func parseAgeBracket(data string) (int, bool) {
	parts := strings.Split(strings.TrimPrefix(data, cbAgePrefix), "_")
	if len(parts) != 2 {
		return 0, false
	}
	lo, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	hi, err := strconv.Atoi(parts[1])
	if err != nil || hi < lo || lo <= 0 {
		return 0, false
	}
	return hi, true
}
