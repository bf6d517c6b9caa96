package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esscraper/config"
)

func TestBuildProviderRejectsUnknown(t *testing.T) {
	flagProvider = "emuparadise"
	defer func() { flagProvider = "" }()

	_, err := buildProvider(context.Background(), config.DefaultConfig())
	assert.ErrorContains(t, err, "'gog' or 'steam'")
}

func TestBuildProviderGOGCaseInsensitive(t *testing.T) {
	flagProvider = "GoG"
	defer func() { flagProvider = "" }()

	p, err := buildProvider(context.Background(), config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "gog", p.Name())
}
