package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inamate/logicsketch/internal/diagram"
	"github.com/inamate/logicsketch/internal/typeid"
)

func TestCheckDocumentID(t *testing.T) {
	assert.NoError(t, checkDocumentID(diagram.PlaygroundID))
	assert.NoError(t, checkDocumentID(typeid.NewDocumentID()))
	assert.Error(t, checkDocumentID(typeid.NewSessionID()))
	assert.Error(t, checkDocumentID("../etc/passwd"))
}

func TestOriginPatterns(t *testing.T) {
	got := originPatterns([]string{"http://localhost:3000", "https://sketch.example.com"})
	assert.Equal(t, []string{"localhost:3000", "sketch.example.com"}, got)
}
