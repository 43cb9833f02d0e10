package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Parallel()

	path, err := parseFlags([]string{"-c", "fingerprint.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "fingerprint.yaml", path)

	_, err = parseFlags(nil)
	assert.ErrorContains(t, err, "no configuration file provided")

	_, err = parseFlags([]string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}
