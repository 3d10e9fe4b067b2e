// Package viewtest provides a scripted view.UI for controller tests.
package viewtest

import "sync"

// UI records notifications and answers confirmations and prompts from a script.
type UI struct {
	mu sync.Mutex

	Notes     []string
	Questions []string

	// Confirm answers every confirmation.
	Answer bool
	// Replies are consumed in order by Prompt; an exhausted script cancels.
	Replies []string
}

// Notify records msg.
func (u *UI) Notify(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Notes = append(u.Notes, msg)
}

// Confirm records msg and returns Answer.
func (u *UI) Confirm(msg string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Questions = append(u.Questions, msg)
	return u.Answer
}

// Prompt records msg and pops the next reply.
func (u *UI) Prompt(msg string) (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Questions = append(u.Questions, msg)
	if len(u.Replies) == 0 {
		return "", false
	}
	r := u.Replies[0]
	u.Replies = u.Replies[1:]
	return r, true
}

// Last returns the latest notification, or "".
func (u *UI) Last() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.Notes) == 0 {
		return ""
	}
	return u.Notes[len(u.Notes)-1]
}
