package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrator struct {
	version uint
	max     uint
	upErr   error
	calls   []string
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	if f.upErr != nil {
		return f.upErr
	}
	f.version = f.max
	return nil
}

func (f *fakeMigrator) Down(n int) error {
	f.calls = append(f.calls, "down")
	if n <= 0 || uint(n) >= f.version {
		f.version = 0
		return nil
	}
	f.version -= uint(n)
	return nil
}

func (f *fakeMigrator) Version() (uint, bool, error) {
	return f.version, false, nil
}

func TestRunAction(t *testing.T) {
	m := &fakeMigrator{max: 3}
	var out bytes.Buffer

	require.NoError(t, runAction(m, "up", 0, &out))
	assert.Equal(t, "version=3 dirty=false\n", out.String())

	out.Reset()
	require.NoError(t, runAction(m, "down", 1, &out))
	assert.Equal(t, "version=2 dirty=false\n", out.String())

	out.Reset()
	require.NoError(t, runAction(m, "version", 0, &out))
	assert.Equal(t, "version=2 dirty=false\n", out.String())

	out.Reset()
	require.NoError(t, runAction(m, "down", 0, &out))
	assert.Equal(t, "version=0 dirty=false\n", out.String())

	assert.Equal(t, []string{"up", "down", "down"}, m.calls)
}

func TestRunAction_Errors(t *testing.T) {
	var out bytes.Buffer

	err := runAction(&fakeMigrator{}, "sideways", 0, &out)
	assert.EqualError(t, err, `unknown action "sideways"`)

	boom := errors.New("dirty database")
	err = runAction(&fakeMigrator{upErr: boom}, "up", 0, &out)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, out.String())
}
