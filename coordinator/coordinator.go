// Package coordinator runs the subsystem's periodic maintenance loops and
// stops them together on shutdown.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/clock"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
)

var (
	ErrProcessExists   = errors.New("process already exists")
	ErrShuttingDown    = errors.New("coordinator is shutting down")
	ErrInvalidInterval = errors.New("interval must be positive")
)

type ProcessStatus string

const (
	StatusRunning ProcessStatus = "running"
	StatusStopped ProcessStatus = "stopped"
)

// Process is a snapshot of one maintenance loop
type Process struct {
	ID        string
	Status    ProcessStatus
	Interval  time.Duration
	StartTime time.Time
	LastRun   time.Time
	Runs      int
	Failures  int
	Error     error
}

type process struct {
	Process
	cancel context.CancelFunc
	done   chan struct{}
}

// Step is one iteration of a loop. A returned error is logged and recorded;
// the loop keeps running.
type Step func(ctx context.Context) error

type Coordinator struct {
	mu              sync.RWMutex
	activeProcesses map[string]*process
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	wg              sync.WaitGroup
	clock           interfaces.Clock
	logger          zerolog.Logger
}

func NewCoordinator(clk interfaces.Clock, opLogger zerolog.Logger) *Coordinator {
	if clk == nil {
		clk = clock.Real{}
	}
	if opLogger.GetLevel() == zerolog.Disabled {
		opLogger = log.Logger
	}
	return &Coordinator{
		activeProcesses: make(map[string]*process),
		shutdownCh:      make(chan struct{}),
		clock:           clk,
		logger:          opLogger.With().Str("component", "coordinator").Logger(),
	}
}

// StartLoop runs step every interval until the process is stopped, the
// coordinator shuts down or ctx is cancelled.
func (c *Coordinator) StartLoop(ctx context.Context, processID string, interval time.Duration, step Step) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, processID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsShuttingDown() {
		return ErrShuttingDown
	}
	if _, exists := c.activeProcesses[processID]; exists {
		return fmt.Errorf("%w: %s", ErrProcessExists, processID)
	}

	processCtx, cancel := context.WithCancel(ctx)
	p := &process{
		Process: Process{
			ID:        processID,
			Status:    StatusRunning,
			Interval:  interval,
			StartTime: c.clock.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.activeProcesses[processID] = p

	// Created before the goroutine starts so that no tick is missed
	ticker := c.clock.NewTicker(interval)
	c.wg.Add(1)
	go c.run(processCtx, p, ticker, step)

	c.logger.Debug().Str("process", processID).Dur("interval", interval).Msg("Maintenance loop started")
	return nil
}

func (c *Coordinator) run(ctx context.Context, p *process, ticker interfaces.Ticker, step Step) {
	defer c.wg.Done()
	defer close(p.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			p.Status = StatusStopped
			c.mu.Unlock()
			return
		case <-ticker.C():
			err := step(ctx)
			if err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Str("process", p.ID).Msg("Maintenance step failed")
			}

			c.mu.Lock()
			p.Runs++
			p.LastRun = c.clock.Now()
			p.Error = err
			if err != nil {
				p.Failures++
			}
			c.mu.Unlock()
		}
	}
}

// StopProcess cancels a loop and waits for its current step to return
func (c *Coordinator) StopProcess(processID string) bool {
	c.mu.Lock()
	p, exists := c.activeProcesses[processID]
	if exists {
		delete(c.activeProcesses, processID)
	}
	c.mu.Unlock()

	if !exists {
		return false
	}
	p.cancel()
	<-p.done
	return true
}

func (c *Coordinator) GetProcessStatus(processID string) *Process {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, exists := c.activeProcesses[processID]; exists {
		snapshot := p.Process
		return &snapshot
	}
	return nil
}

// ListProcesses returns snapshots of the active loops ordered by ID
func (c *Coordinator) ListProcesses() []*Process {
	c.mu.RLock()
	defer c.mu.RUnlock()

	processes := make([]*Process, 0, len(c.activeProcesses))
	for _, p := range c.activeProcesses {
		snapshot := p.Process
		processes = append(processes, &snapshot)
	}
	sort.Slice(processes, func(i, j int) bool { return processes[i].ID < processes[j].ID })
	return processes
}

// Shutdown cancels every loop and waits for them until ctx expires
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() { close(c.shutdownCh) })

	c.mu.Lock()
	for _, p := range c.activeProcesses {
		p.cancel()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.mu.Lock()
		clear(c.activeProcesses)
		c.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) IsShuttingDown() bool {
	select {
	case <-c.shutdownCh:
		return true
	default:
		return false
	}
}
