package contexts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/helixdata/helix-go/pkg/models"
)

// sysUserIDPrefix marks the probe log line carrying the remote system user id.
const sysUserIDPrefix = "SYSUSERID="

// probeProgram prints the remote system user id into the job log.
var probeProgram = []string{"list sysuserid;"}

// ExecuteResult is what a probe execution hands back: the job's log output.
type ExecuteResult struct {
	Log string
}

// ExecuteFunc runs a short diagnostic program on the named compute context.
// Each invocation is a full remote round trip that spins up a server process.
type ExecuteFunc func(ctx context.Context, jobName string, lines []string, contextName, token string) (*ExecuteResult, error)

// ProbeOption tunes GetExecutableContexts.
type ProbeOption func(*probeOptions)

type probeOptions struct {
	concurrency int64
}

// WithProbeConcurrency bounds how many probes may run at once. The default
// of 1 keeps probes strictly sequential, which bounds load on the compute
// tier; any value preserves result order relative to the context list.
func WithProbeConcurrency(n int) ProbeOption {
	return func(o *probeOptions) {
		if n > 0 {
			o.concurrency = int64(n)
		}
	}
}

// GetExecutableContexts probes every known compute context with a diagnostic
// program and returns the ones that answered, each annotated with the
// sysUserId parsed from its log. A failing probe excludes its context from
// the result instead of aborting the scan.
func (m *Manager) GetExecutableContexts(ctx context.Context, execute ExecuteFunc, token string, opts ...ProbeOption) ([]models.ExecutableContext, error) {
	options := probeOptions{concurrency: 1}
	for _, opt := range opts {
		opt(&options)
	}

	resp, err := m.client.Get(ctx, fmt.Sprintf("%s?limit=%d", computeContextsPath, listLimit), token)
	if err != nil {
		return nil, fmt.Errorf("fetching compute contexts: %w", err)
	}
	var collection struct {
		Items []models.Context `json:"items"`
	}
	if err := json.Unmarshal(resp.Body, &collection); err != nil {
		collection.Items = nil
	}

	// Results are indexed by list position so concurrent probes cannot
	// reorder or mispair them.
	results := make([]*models.ExecutableContext, len(collection.Items))

	if options.concurrency <= 1 {
		for i, item := range collection.Items {
			results[i] = m.probeContext(ctx, execute, item, token)
		}
	} else {
		sem := semaphore.NewWeighted(options.concurrency)
		var wg sync.WaitGroup
		var acquireErr error
		for i, item := range collection.Items {
			if err := sem.Acquire(ctx, 1); err != nil {
				acquireErr = err
				break
			}
			wg.Add(1)
			go func(i int, item models.Context) {
				defer wg.Done()
				defer sem.Release(1)
				results[i] = m.probeContext(ctx, execute, item, token)
			}(i, item)
		}
		wg.Wait()
		// A partial scan must not masquerade as a complete one.
		if acquireErr != nil {
			return nil, acquireErr
		}
	}

	executable := make([]models.ExecutableContext, 0, len(collection.Items))
	for _, r := range results {
		if r != nil {
			executable = append(executable, *r)
		}
	}
	return executable, nil
}

// probeContext runs the diagnostic program on one context. Probe failures
// and logs without a SYSUSERID line both yield nil.
func (m *Manager) probeContext(ctx context.Context, execute ExecuteFunc, item models.Context, token string) *models.ExecutableContext {
	result, err := execute(ctx, "test-"+item.Name, probeProgram, item.Name, token)
	if err != nil {
		m.logger.Debug("context probe failed",
			zap.String("context", item.Name),
			zap.Error(err))
		return nil
	}
	if result == nil {
		return nil
	}

	for _, line := range strings.Split(result.Log, "\n") {
		if !strings.HasPrefix(line, sysUserIDPrefix) {
			continue
		}
		sysUserID := strings.TrimPrefix(strings.TrimRight(line, "\r"), sysUserIDPrefix)
		return &models.ExecutableContext{
			CreatedBy:  item.CreatedBy,
			ID:         item.ID,
			Name:       item.Name,
			Version:    item.Version,
			Attributes: map[string]any{"sysUserId": sysUserID},
		}
	}
	return nil
}
