package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func daemonCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the due-today notification scan in a loop",
		Long: `Continuously derive pending-task notifications for every user on a timer.
Designed for running inside a Docker container or as a background service.
Handles SIGINT/SIGTERM for graceful shutdown (finishes the current cycle).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			defer engine.Close()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			log.Printf("verdant daemon: starting with interval %s", interval)

			cycle := 1
			for {
				start := time.Now()

				users, err := engine.ListUsers()
				if err != nil {
					log.Printf("verdant daemon: cycle %d: list users: %v", cycle, err)
				}
				for _, u := range users {
					result, err := engine.ScanDueToday(u.ID)
					if err != nil {
						log.Printf("verdant daemon: cycle %d: scan user %d: %v", cycle, u.ID, err)
						continue
					}
					if result.Ensured > 0 || result.Completed > 0 {
						log.Printf("verdant daemon: user %d: %d schedules, %d due, %d done",
							u.ID, result.SchedulesScanned, result.Ensured, result.Completed)
					}
				}

				log.Printf("verdant daemon: cycle %d completed in %s", cycle, time.Since(start).Round(time.Millisecond))
				cycle++

				// Wait for the next tick or a shutdown signal.
				timer := time.NewTimer(interval)
				select {
				case <-sig:
					timer.Stop()
					log.Println("verdant daemon: received shutdown signal, exiting")
					return nil
				case <-timer.C:
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Hour, "duration between scan cycles (e.g. 30m, 1h)")
	return cmd
}
