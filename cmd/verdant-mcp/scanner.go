package main

import (
	"context"
	"log"
	"sync"
	"time"

	verdant "github.com/verdanthq/verdant"
)

// scanner runs a background due-today scan loop over all users.
type scanner struct {
	engine   *verdant.Engine
	interval time.Duration

	mu   sync.Mutex
	done chan struct{}
}

func newScanner(engine *verdant.Engine, interval time.Duration) *scanner {
	return &scanner{
		engine:   engine,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// start launches the background scan loop. It scans immediately, then on
// each tick of the configured interval.
func (s *scanner) start(ctx context.Context) {
	go s.loop(ctx)
	log.Printf("scanner: started (interval=%s)", s.interval)
}

// stop signals the scan loop to exit.
func (s *scanner) stop() {
	close(s.done)
	log.Printf("scanner: stopped")
}

// scan runs a single due-today cycle across every registered user.
// Also exposed through the scan_now MCP tool.
func (s *scanner) scan() (*verdant.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.engine.ListUsers()
	if err != nil {
		return nil, err
	}

	var total verdant.ScanResult
	for _, u := range users {
		result, err := s.engine.ScanDueToday(u.ID)
		if err != nil {
			log.Printf("scanner: user %d: %v", u.ID, err)
			continue
		}
		total.SchedulesScanned += result.SchedulesScanned
		total.Ensured += result.Ensured
		total.Completed += result.Completed
	}

	log.Printf("scanner: %d users, %d schedules, %d notifications ensured, %d days completed",
		len(users), total.SchedulesScanned, total.Ensured, total.Completed)

	return &total, nil
}

func (s *scanner) loop(ctx context.Context) {
	if _, err := s.scan(); err != nil {
		log.Printf("scanner: initial scan error: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.scan(); err != nil {
				log.Printf("scanner: scan error: %v", err)
			}
		}
	}
}
