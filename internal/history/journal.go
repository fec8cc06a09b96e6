package history

import "sync"

// Journal holds one Log per (game, player)
type Journal struct {
	mu   sync.RWMutex
	logs map[string]*Log
}

func NewJournal() *Journal {
	return &Journal{logs: make(map[string]*Log)}
}

// Log returns the player's log, creating it on first use
func (j *Journal) Log(gameID, playerID string) *Log {
	key := gameID + "/" + playerID

	j.mu.RLock()
	l, ok := j.logs[key]
	j.mu.RUnlock()
	if ok {
		return l
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if l, ok := j.logs[key]; ok {
		return l
	}
	l = NewLog()
	j.logs[key] = l
	return l
}

// Forget drops the player's log entirely
func (j *Journal) Forget(gameID, playerID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.logs, gameID+"/"+playerID)
}
