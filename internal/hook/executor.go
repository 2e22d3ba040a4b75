package hook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// ErrHookMissing marks a hook that was registered but absent or not
// executable at invocation time.
var ErrHookMissing = errors.New("hook missing or not executable")

// Executor runs hook pipelines. Execution is fail-isolated: a hook that is
// missing, exits non-zero, or times out is counted as failed and the
// pipeline proceeds to the next hook. No hook failure is fatal to the
// surrounding save or restore.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	log      *slog.Logger
}

func NewExecutor(registry *Registry, timeout time.Duration, log *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Executor{registry: registry, timeout: timeout, log: log}
}

// Run executes the phase's hooks in order and returns the summary.
func (e *Executor) Run(ctx context.Context, phase Phase) Summary {
	hooks := e.registry.ForPhase(phase)
	sum := Summary{Phase: phase, Total: len(hooks)}
	for _, h := range hooks {
		res := e.runOne(ctx, h, phase)
		sum.Results = append(sum.Results, res)
		if res.Err != nil {
			sum.Failed++
			e.log.Warn("hook failed", "phase", string(phase), "hook", h.Name, "err", res.Err)
			continue
		}
		sum.Succeeded++
		e.log.Debug("hook succeeded", "phase", string(phase), "hook", h.Name, "duration", res.Duration)
	}
	return sum
}

func (e *Executor) runOne(ctx context.Context, h Descriptor, phase Phase) Result {
	res := Result{Hook: h}
	info, err := os.Stat(h.Path)
	if err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		res.Err = fmt.Errorf("%w: %s", ErrHookMissing, h.Path)
		res.ExitCode = -1
		return res
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	start := time.Now()
	// #nosec G204 -- hook paths come from the validated registry
	cmd := exec.CommandContext(cctx, h.Path, string(phase))
	out, err := cmd.CombinedOutput()
	res.Duration = time.Since(start)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			res.Err = fmt.Errorf("timed out after %s", e.timeout)
			res.ExitCode = -1
			return res
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			res.ExitCode = ee.ExitCode()
			res.Err = fmt.Errorf("exit code %d: %s", res.ExitCode, firstLine(out))
			return res
		}
		res.Err = err
		res.ExitCode = -1
		return res
	}
	res.ExitCode = 0
	return res
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}
