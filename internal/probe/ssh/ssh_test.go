package ssh_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhoujuxi2028/consoleqa/internal/model"
	probessh "github.com/zhoujuxi2028/consoleqa/internal/probe/ssh"
	issh "github.com/zhoujuxi2028/consoleqa/internal/ssh"
)

func TestProbeUnreachable(t *testing.T) {
	p, err := probessh.New(issh.ClientConfig{
		Host:           "192.0.2.1", // RFC 5737 TEST-NET.
		User:           "root",
		Password:       "x",
		ConnectTimeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Execute(context.Background(), "uname -r")
	var unreachable *model.UnreachableError
	require.ErrorAs(t, err, &unreachable)
	assert.Equal(t, "192.0.2.1:22", unreachable.Target)
}

func TestNewProbeRequiresHost(t *testing.T) {
	_, err := probessh.New(issh.ClientConfig{})
	assert.Error(t, err)
}
