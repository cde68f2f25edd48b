package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func newTestStartup(maxAttempts int) *Startup {
	s := NewStartup(silentLogger(), maxAttempts)
	s.unit = time.Millisecond
	return s
}

func TestStartup_OrderAndStop(t *testing.T) {
	s := newTestStartup(1)
	var events []string
	dep := func(name string, requires ...string) *Dependency {
		return &Dependency{
			Name:     name,
			Requires: requires,
			StartFn:  func(context.Context) error { events = append(events, "start "+name); return nil },
			StopFn:   func(context.Context) error { events = append(events, "stop "+name); return nil },
		}
	}
	s.AddDependency(dep("consumer", "database"))
	s.AddDependency(dep("database"))
	s.AddDependency(dep("redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, StartupStatusStarted, s.Status("consumer"))

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{
		"start database", "start consumer", "start redis",
		"stop redis", "stop consumer", "stop database",
	}, events)
	assert.Equal(t, StartupStatusStopped, s.Status("database"))
}

func TestStartup_Retries(t *testing.T) {
	tests := []struct {
		name        string
		failures    int
		maxAttempts int
		wantErr     bool
	}{
		{"first try", 0, 3, false},
		{"recovers", 2, 3, false},
		{"gives up", 3, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStartup(tt.maxAttempts)
			calls := 0
			s.AddDependency(&Dependency{Name: "database", StartFn: func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return errors.New("connection refused")
				}
				return nil
			}})

			err := s.Start(context.Background())
			if tt.wantErr {
				assert.ErrorContains(t, err, "connection refused")
				assert.Equal(t, tt.maxAttempts, calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.failures+1, calls)
		})
	}
}

func TestStartup_StartedDependenciesAreNotRestarted(t *testing.T) {
	s := newTestStartup(2)
	dbStarts, redisStarts := 0, 0
	s.AddDependency(&Dependency{Name: "database", StartFn: func(context.Context) error { dbStarts++; return nil }})
	s.AddDependency(&Dependency{Name: "redis", StartFn: func(context.Context) error {
		redisStarts++
		if redisStarts == 1 {
			return errors.New("not yet")
		}
		return nil
	}})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, dbStarts)
	assert.Equal(t, 2, redisStarts)
}

func TestStartup_UnknownAndCyclicDependencies(t *testing.T) {
	s := newTestStartup(1)
	s.AddDependency(&Dependency{Name: "a", Requires: []string{"missing"}, StartFn: func(context.Context) error { return nil }})
	assert.ErrorContains(t, s.Start(context.Background()), "unknown startup dependency")

	s = newTestStartup(1)
	s.AddDependency(&Dependency{Name: "a", Requires: []string{"b"}, StartFn: func(context.Context) error { return nil }})
	s.AddDependency(&Dependency{Name: "b", Requires: []string{"a"}, StartFn: func(context.Context) error { return nil }})
	assert.ErrorContains(t, s.Start(context.Background()), "cycle")
}
