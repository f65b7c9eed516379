//go:build unix

package gamma

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/pgaskin/screenfilter/curve"
	"github.com/pgaskin/screenfilter/display"
	"github.com/pgaskin/screenfilter/display/displaytest"
	"github.com/stretchr/testify/require"
)

// restoreEnv is set to a file path when the test binary is re-executed as
// the process being signaled.
const restoreEnv = "SCREENFILTER_TEST_RESTORE_FILE"

// recorder saves the last table written to a device to a file, so it can be
// checked after the process exits.
type recorder struct {
	*displaytest.Fake
	path string
}

func (r recorder) WriteTable(id display.DeviceID, t curve.Table) error {
	if err := r.Fake.WriteTable(id, t); err != nil {
		return err
	}
	buf, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, buf, 0644)
}

func recorded(t *testing.T, path string) curve.Table {
	t.Helper()
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	var tbl curve.Table
	require.NoError(t, json.Unmarshal(buf, &tbl))
	return tbl
}

func TestRestoreOnSignal(t *testing.T) {
	if path := os.Getenv(restoreEnv); path != "" {
		fake := displaytest.New("DISPLAY1")
		fake.SetTable("DISPLAY1", custom())
		ctl := New(recorder{fake, path}, nil)
		require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))
		RestoreOnSignal(ctl, nil, syscall.SIGHUP)
		os.Stdout.WriteString("ready\n")
		time.Sleep(time.Minute)
		t.Fatal("not terminated by signal")
	}

	path := filepath.Join(t.TempDir(), "table.json")

	cmd := exec.Command(os.Args[0], "-test.run=^TestRestoreOnSignal$")
	cmd.Env = append(os.Environ(), restoreEnv+"="+path)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { cmd.Process.Kill() })

	sc := bufio.NewScanner(stdout)
	for sc.Scan() && sc.Text() != "ready" {
	}
	require.NoError(t, sc.Err())
	require.Equal(t, curve.NewTable(warm()), recorded(t, path))

	require.NoError(t, cmd.Process.Signal(syscall.SIGHUP))
	_, _ = io.Copy(io.Discard, stdout)

	var ee *exec.ExitError
	require.ErrorAs(t, cmd.Wait(), &ee)
	ws, ok := ee.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	require.True(t, ws.Signaled(), "exited with %s", ee)
	require.Equal(t, syscall.SIGHUP, ws.Signal())

	// restored before terminating
	require.Equal(t, custom(), recorded(t, path))
}

func TestRestoreOnSignalStop(t *testing.T) {
	ctl := New(displaytest.New("DISPLAY1"), nil)
	require.NoError(t, ctl.Apply(warm(), []display.DeviceID{"DISPLAY1"}))

	stop := RestoreOnSignal(ctl, nil, syscall.SIGUSR1)
	stop()
	stop()

	// not closed
	require.NoError(t, ctl.Apply(curve.Identity(), []display.DeviceID{"DISPLAY1"}))
}
