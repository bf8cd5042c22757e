package epoch

import (
	"errors"
	"testing"

	"github.com/sharedcode/lss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResumeSuspend(t *testing.T) {
	d := NewDomain()
	g := NewGuard(d)
	assert.False(t, g.Protected())
	require.NoError(t, g.Resume())
	assert.True(t, g.Protected())
	g.Suspend()
	assert.False(t, g.Protected())
}

func TestNestedResumeIsRejected(t *testing.T) {
	d := NewDomain()
	g := NewGuard(d)
	require.NoError(t, g.Resume())
	defer g.Suspend()

	err := g.Resume()
	require.Error(t, err)
	var lerr lss.Error
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, lss.EpochProtocolViolation, lerr.Code)
}

func TestEnterReleasesOnPanic(t *testing.T) {
	d := NewDomain()
	g := NewGuard(d)

	func() {
		defer func() { recover() }()
		Enter(g, func() error {
			panic("boom")
		})
	}()

	assert.False(t, g.Protected(), "Suspend must run even when fn panics")
}

func TestEnterReleasesOnError(t *testing.T) {
	d := NewDomain()
	g := NewGuard(d)
	err := Enter(g, func() error { return errors.New("fail") })
	assert.Error(t, err)
	assert.False(t, g.Protected())
}
