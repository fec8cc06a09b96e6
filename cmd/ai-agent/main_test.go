package main

import (
	"testing"

	"github.com/aman-zulfiqar/hustler-market/internal/ai"
	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line     string
		wantCmd  string
		wantArgs []string
	}{
		{"who sold the most weed?", "", nil},
		{":report netting", "report", []string{"netting"}},
		{":SCOPE g1 p1", "scope", []string{"g1", "p1"}},
		{":scope", "scope", []string{}},
		{":", "", nil},
	}
	for _, tt := range tests {
		cmd, args := parseCommand(tt.line)
		assert.Equal(t, tt.wantCmd, cmd, tt.line)
		assert.Equal(t, tt.wantArgs, args, tt.line)
	}
}

func TestScope(t *testing.T) {
	s := scopeFromArgs([]string{"g1", "p1"})
	assert.Equal(t, ai.Scope{GameID: "g1", PlayerID: "p1"}, s)
	assert.Equal(t, "g1/p1 ", scopePrompt(s))
	assert.Equal(t, "g1 ", scopePrompt(scopeFromArgs([]string{"g1"})))
	assert.Equal(t, ai.Scope{}, scopeFromArgs(nil))
	assert.Empty(t, scopePrompt(ai.Scope{}))
}
